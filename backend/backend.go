package backend

import "context"

// Backend is the lifecycle shared by signers, tables and registries.
// A single implementation may serve several of those roles; the service
// opens and closes it once.
type Backend interface {
	// Name returns the identifier used in logs and configuration, e.g. "sqlite".
	Name() string
	// Open connects to the store and prepares its schema before first use.
	Open(ctx context.Context) error
	// Close releases held connections; the backend is unusable afterwards.
	Close(ctx context.Context) error

	// GetCapabilities reports which roles and signer extensions are available.
	GetCapabilities() *BackendCapabilities
}
