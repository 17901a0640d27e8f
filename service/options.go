package service

import (
	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/upload"
)

type ServiceOptions struct {
	Signer   backend.SignerBackend
	Table    backend.TableBackend
	Registry backend.RegistryBackend

	Builder *upload.Builder
	Logger  *log.Logger
}

type ServiceOption func(*ServiceOptions) error

func newDefaultServiceOptions() *ServiceOptions {
	return &ServiceOptions{
		Logger: log.Discard(),
	}
}

func WithSigner(signer backend.SignerBackend) ServiceOption {
	return func(so *ServiceOptions) error {
		so.Signer = signer
		return nil
	}
}

func WithTable(table backend.TableBackend) ServiceOption {
	return func(so *ServiceOptions) error {
		so.Table = table
		return nil
	}
}

func WithRegistry(registry backend.RegistryBackend) ServiceOption {
	return func(so *ServiceOptions) error {
		so.Registry = registry
		return nil
	}
}

// WithBuilder replaces the default builder (300s expiry, public-read ACL).
func WithBuilder(builder *upload.Builder) ServiceOption {
	return func(so *ServiceOptions) error {
		so.Builder = builder
		return nil
	}
}

func WithLogger(logger *log.Logger) ServiceOption {
	return func(so *ServiceOptions) error {
		if logger != nil {
			so.Logger = logger
		}
		return nil
	}
}
