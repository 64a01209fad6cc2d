package filestore

import (
	"strings"

	"github.com/koustreak/litequery/internal/errs"
)

// DefaultBucket receives snapshots when no bucket is configured.
const DefaultBucket = "litequery-snapshots"

// Config holds the S3-compatible endpoint snapshots are written to.
type Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string // empty for MinIO
	Bucket    string
}

// Validate reports every missing setting at once.
func (c *Config) Validate() error {
	if c == nil {
		return errs.New(errs.ErrKindInvalidInput, "object storage config is required")
	}

	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		missing = append(missing, "access key and secret key must be set together")
	}
	if len(missing) > 0 {
		return errs.New(errs.ErrKindInvalidInput, "object storage: "+strings.Join(missing, ", "))
	}
	return nil
}
