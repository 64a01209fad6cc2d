// Package metadata holds the passive entity and relation descriptors the
// driver layer needs: where a table lives and how a relation loads.
package metadata

import "fmt"

// RelationType names the cardinality of a relation.
type RelationType string

const (
	OneToOne   RelationType = "one-to-one"
	OneToMany  RelationType = "one-to-many"
	ManyToOne  RelationType = "many-to-one"
	ManyToMany RelationType = "many-to-many"
)

// RelationOptions configure a relation. Lazy is explicit; nothing is
// inferred from the shape of the property type.
type RelationOptions struct {
	Lazy     bool
	Eager    bool
	Cascade  bool
	Nullable bool
	OnDelete string
}

// Relation describes one side of a relation between two entities.
type Relation struct {
	Type        RelationType
	Target      string
	InverseSide string
	Options     RelationOptions
}

// NewRelation builds a relation descriptor. A relation cannot be both
// lazy and eager.
func NewRelation(typ RelationType, target, inverseSide string, opts RelationOptions) (Relation, error) {
	if target == "" {
		return Relation{}, fmt.Errorf("%s relation requires a target entity", typ)
	}
	if opts.Lazy && opts.Eager {
		return Relation{}, fmt.Errorf("%s relation to %s cannot be both lazy and eager", typ, target)
	}
	return Relation{Type: typ, Target: target, InverseSide: inverseSide, Options: opts}, nil
}

// NewManyToMany builds a many-to-many relation descriptor.
func NewManyToMany(target, inverseSide string, opts RelationOptions) (Relation, error) {
	return NewRelation(ManyToMany, target, inverseSide, opts)
}

// IsLazy reports whether the related rows load on first access.
func (r Relation) IsLazy() bool {
	return r.Options.Lazy
}
