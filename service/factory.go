package service

import (
	"context"
	"time"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/backend/consul"
	"github.com/mwantia/carupload/backend/gcs"
	"github.com/mwantia/carupload/backend/memory"
	"github.com/mwantia/carupload/backend/postgres"
	"github.com/mwantia/carupload/backend/s3"
	"github.com/mwantia/carupload/backend/sqlite"
	"github.com/mwantia/carupload/config"
	"github.com/mwantia/carupload/data"
	errs "github.com/mwantia/carupload/data/errors"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/upload"
)

// NewFromConfig creates every configured backend and wires them into a Service.
// The table and the registry share one backend instance when both use the
// memory backend, so a single process sees one consistent store.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Service, error) {
	builder, err := upload.NewBuilder(
		upload.WithExpiry(time.Duration(cfg.Upload.ExpirySeconds)*time.Second),
		upload.WithACL(cfg.UploadACL()),
	)
	if err != nil {
		return nil, err
	}

	var shared *memory.MemoryBackend
	sharedMemory := func() *memory.MemoryBackend {
		if shared == nil {
			shared = memory.NewMemoryBackend(cfg.Signer.Bucket)
		}
		return shared
	}

	// Backends built before a failure are closed again
	var created []backend.Backend
	fail := func(err error) (*Service, error) {
		if closeErr := closeBackends(ctx, created...); closeErr != nil && logger != nil {
			logger.Warn("Failed to release backends: %v", closeErr)
		}
		return nil, err
	}

	signer, err := newSigner(ctx, cfg.Signer, sharedMemory)
	if err != nil {
		return fail(err)
	}
	created = append(created, signer)

	tableStore, err := newStore(ctx, "table", cfg.Table, sharedMemory)
	if err != nil {
		return fail(err)
	}
	created = append(created, tableStore)
	table, ok := tableStore.(backend.TableBackend)
	if !ok {
		return fail(errs.BackendUnsupported(tableStore.Name(), string(backend.CapabilityTable)))
	}

	registryStore, err := newStore(ctx, "registry", cfg.Registry, sharedMemory)
	if err != nil {
		return fail(err)
	}
	created = append(created, registryStore)
	registry, ok := registryStore.(backend.RegistryBackend)
	if !ok {
		return fail(errs.BackendUnsupported(registryStore.Name(), string(backend.CapabilityRegistry)))
	}

	svc, err := New(
		WithSigner(signer),
		WithTable(table),
		WithRegistry(registry),
		WithBuilder(builder),
		WithLogger(logger),
	)
	if err != nil {
		return fail(err)
	}
	return svc, nil
}

// closeBackends closes each distinct backend once and reports all failures.
func closeBackends(ctx context.Context, backends ...backend.Backend) error {
	var closeErrs data.Errors
	seen := make(map[backend.Backend]bool)
	for _, b := range backends {
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		if err := b.Close(ctx); err != nil {
			closeErrs.Add(errs.BackendCloseFailed(err, b.Name()))
		}
	}
	return closeErrs.Errors()
}

func newSigner(ctx context.Context, cfg config.SignerConfig, sharedMemory func() *memory.MemoryBackend) (backend.SignerBackend, error) {
	switch cfg.Backend {
	case "s3":
		return s3.NewS3Backend(&s3.S3BackendConfig{
			Endpoint:     cfg.S3.Endpoint,
			Bucket:       cfg.Bucket,
			Region:       cfg.S3.Region,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			SessionToken: cfg.S3.SessionToken,
			Insecure:     cfg.S3.Insecure,
			VerifyBucket: cfg.S3.VerifyBucket,
		})
	case "gcs":
		return gcs.NewGCSBackend(ctx, &gcs.GCSBackendConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		})
	case "memory":
		return sharedMemory(), nil
	default:
		return nil, errs.BackendUnknown("signer", cfg.Backend)
	}
}

// newStore returns a backend providing both the table and the registry
// interfaces; the caller asserts the one it needs.
func newStore(ctx context.Context, kind string, cfg config.StoreConfig, sharedMemory func() *memory.MemoryBackend) (backend.Backend, error) {
	var recordTable, connectionTable string
	if kind == "table" {
		recordTable = cfg.Name
	} else {
		connectionTable = cfg.Name
	}

	switch cfg.Backend {
	case "memory":
		return sharedMemory(), nil
	case "sqlite":
		return sqlite.NewSQLiteBackend(&sqlite.SQLiteBackendConfig{
			Path:            cfg.SQLite.Path,
			RecordTable:     recordTable,
			ConnectionTable: connectionTable,
		})
	case "postgres":
		return postgres.NewPostgresBackend(ctx, &postgres.PostgresBackendConfig{
			ConnString:      cfg.Postgres.DSN,
			RecordTable:     recordTable,
			ConnectionTable: connectionTable,
		})
	case "consul":
		return consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:         cfg.Consul.Address,
			Token:           cfg.Consul.Token,
			Datacenter:      cfg.Consul.Datacenter,
			Prefix:          cfg.Consul.Prefix,
			RecordTable:     recordTable,
			ConnectionTable: connectionTable,
		})
	default:
		return nil, errs.BackendUnknown(kind, cfg.Backend)
	}
}
