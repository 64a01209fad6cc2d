package database

// DriverType is the discriminator carried by connection options.
type DriverType string

const (
	DriverSQLite  DriverType = "sqlite"
	DriverMongoDB DriverType = "mongodb"
)

// ManagerKind names the entity-manager family that wraps a connection.
type ManagerKind string

const (
	ManagerRelational ManagerKind = "relational"
	ManagerDocument   ManagerKind = "document"
)

// ManagerFor picks the entity-manager family for a driver type.
// Only document stores get the document manager; every SQL engine,
// including this one, is wrapped by the relational manager.
func ManagerFor(t DriverType) ManagerKind {
	if t == DriverMongoDB {
		return ManagerDocument
	}
	return ManagerRelational
}
