package filestore

import "time"

// ObjectInfo describes a stored snapshot file.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"` // -1 if unknown
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`

	// IsDir marks a common prefix returned by a non-recursive listing.
	IsDir bool `json:"is_dir,omitempty"`
}

// ListOptions filters ListObjects.
type ListOptions struct {
	Prefix    string
	Recursive bool // false groups keys by "/" into IsDir entries
	Limit     int  // 0 means no limit
}
