package backend

import (
	"context"

	"github.com/mwantia/carupload/data"
)

// RegistryBackend tracks open realtime connections.
type RegistryBackend interface {
	Backend

	// RegisterConnection stores or replaces a connection entry.
	RegisterConnection(ctx context.Context, conn *data.Connection) error

	// UnregisterConnection removes a connection entry. Removing an unknown
	// connection is not an error; existed reports whether anything was removed.
	UnregisterConnection(ctx context.Context, connectionID string) (existed bool, err error)
}
