package upload

import (
	"fmt"
	"time"
)

const (
	DefaultExpiry = 300 * time.Second
	DefaultACL    = "public-read"
)

type BuilderOptions struct {
	Expiry time.Duration
	ACL    string
}

type BuilderOption func(*BuilderOptions) error

func newDefaultBuilderOptions() *BuilderOptions {
	return &BuilderOptions{
		Expiry: DefaultExpiry,
		ACL:    DefaultACL,
	}
}

// WithExpiry sets how long signed URLs stay valid. Sub-second precision is dropped.
func WithExpiry(expiry time.Duration) BuilderOption {
	return func(bo *BuilderOptions) error {
		if expiry < time.Second {
			return fmt.Errorf("upload expiry must be at least one second, got %s", expiry)
		}
		bo.Expiry = expiry
		return nil
	}
}

// WithACL sets the canned ACL bound to every signed upload. Empty disables it.
func WithACL(acl string) BuilderOption {
	return func(bo *BuilderOptions) error {
		bo.ACL = acl
		return nil
	}
}
