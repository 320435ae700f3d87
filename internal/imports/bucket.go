package imports

import (
	"fmt"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
	"github.com/thanos-io/objstore/providers/s3"
)

const (
	Filesystem = "filesystem"
	S3         = "s3"
)

type BucketConfig struct {
	Provider string    `yaml:"provider"`
	Dir      string    `yaml:"dir"`
	S3       s3.Config `yaml:"s3"`
}

// NewBucket opens the bucket holding uploaded import files.
func NewBucket(c BucketConfig) (objstore.Bucket, error) {
	switch c.Provider {
	case Filesystem, "":
		return filesystem.NewBucket(c.Dir)
	case S3:
		return s3.NewBucketWithConfig(nil, c.S3, "tally")
	default:
		return nil, fmt.Errorf("unknown bucket provider %q", c.Provider)
	}
}
