// Package gcs signs uploads for a Google Cloud Storage bucket.
//
// GCS cannot verify a SHA-256 digest on upload, so the checksum is bound as
// signed object metadata instead and the backend does not report the checksum
// capability.
package gcs

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/mwantia/carupload/backend"
)

type GCSBackend struct {
	mu sync.RWMutex

	client *storage.Client
	bucket *storage.BucketHandle
	config *GCSBackendConfig
}

type GCSBackendConfig struct {
	Bucket string
	// CredentialsFile is a service account key; empty uses application default credentials.
	CredentialsFile string
	// Endpoint overrides the storage API endpoint, e.g. for an emulator.
	Endpoint string
}

func NewGCSBackend(ctx context.Context, config *GCSBackendConfig) (*GCSBackend, error) {
	if config == nil || config.Bucket == "" {
		return nil, fmt.Errorf("missing gcs bucket")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSBackend{
		client: client,
		bucket: client.Bucket(config.Bucket),
		config: config,
	}, nil
}

// Returns the identifier name defined for this backend
func (*GCSBackend) Name() string {
	return "gcs"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (gb *GCSBackend) Open(ctx context.Context) error {
	return nil
}

// Close is part of the lifecycle behaviour and closes the storage client.
func (gb *GCSBackend) Close(ctx context.Context) error {
	gb.mu.Lock()
	defer gb.mu.Unlock()

	return gb.client.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (gb *GCSBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilitySigner,
		},
	}
}
