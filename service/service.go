package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/content"
	"github.com/mwantia/carupload/data"
	errs "github.com/mwantia/carupload/data/errors"
	"github.com/mwantia/carupload/log"
	"github.com/mwantia/carupload/metadata"
	"github.com/mwantia/carupload/upload"
)

// Service implements the request handlers independent of their transport.
// Collaborators are injected once and never replaced, so a Service is safe
// for concurrent use.
type Service struct {
	signer   backend.SignerBackend
	table    backend.TableBackend
	registry backend.RegistryBackend

	builder *upload.Builder
	index   *metadata.Index
	logger  *log.Logger
}

// UploadRequest carries the query parameters of an upload URL request.
type UploadRequest struct {
	Kind   data.Kind
	Name   string
	CID    string
	Branch string
	Size   int64
}

// UploadResponse is returned to clients as {"uploadURL": ..., "Key": ...}.
type UploadResponse struct {
	UploadURL string `json:"uploadURL"`
	Key       string `json:"Key"`
}

// MetaDocument is the body of a metadata PUT request.
type MetaDocument struct {
	CID     string          `json:"cid"`
	Data    json.RawMessage `json:"data"`
	Parents []string        `json:"parents"`
}

func New(opts ...ServiceOption) (*Service, error) {
	options := newDefaultServiceOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if options.Builder == nil {
		builder, err := upload.NewBuilder()
		if err != nil {
			return nil, err
		}
		options.Builder = builder
	}

	checks := []struct {
		backend    backend.Backend
		capability backend.BackendCapability
	}{
		{options.Signer, backend.CapabilitySigner},
		{options.Table, backend.CapabilityTable},
		{options.Registry, backend.CapabilityRegistry},
	}
	for _, check := range checks {
		if check.backend == nil {
			continue
		}
		if !check.backend.GetCapabilities().Contains(check.capability) {
			return nil, errs.BackendUnsupported(check.backend.Name(), string(check.capability))
		}
	}

	s := &Service{
		signer:   options.Signer,
		table:    options.Table,
		registry: options.Registry,
		builder:  options.Builder,
		logger:   options.Logger,
	}
	if s.table != nil {
		s.index = metadata.NewIndex(s.table, options.Logger.Named("meta"))
	}

	return s, nil
}

// backends returns each distinct configured backend once.
func (s *Service) backends() []backend.Backend {
	var result []backend.Backend
	seen := make(map[backend.Backend]bool)
	for _, b := range []backend.Backend{s.signer, s.table, s.registry} {
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		result = append(result, b)
	}
	return result
}

// Open opens every configured backend.
func (s *Service) Open(ctx context.Context) error {
	for _, b := range s.backends() {
		if err := b.Open(ctx); err != nil {
			return errs.BackendOpenFailed(err, b.Name())
		}
		s.logger.Debug("Opened backend '%s'", b.Name())
	}
	return nil
}

// Close closes every configured backend and reports all failures.
func (s *Service) Close(ctx context.Context) error {
	return closeBackends(ctx, s.backends()...)
}

// UploadURL validates the request and returns a signed upload URL.
func (s *Service) UploadURL(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if s.signer == nil {
		return nil, errs.BackendUnsupported("none", string(backend.CapabilitySigner))
	}

	intent, err := s.builder.Build(req.Kind, req.Name, upload.Params{
		CID:    req.CID,
		Branch: req.Branch,
		Size:   req.Size,
	})
	if err != nil {
		return nil, err
	}

	caps := s.signer.GetCapabilities()
	if intent.HasChecksum() && !caps.SupportsChecksum(intent.ChecksumAlgorithm) {
		// A store that verifies checksums would reject the upload anyway
		if caps.Contains(backend.CapabilityChecksum) {
			return nil, data.UnsupportedChecksum(intent.ChecksumAlgorithm)
		}
		s.logger.Warn("Signer '%s' cannot verify '%s' checksums; integrity of '%s' is not enforced by the store",
			s.signer.Name(), intent.ChecksumAlgorithm, intent.Key)
	}

	uploadURL, err := s.signer.Issue(ctx, intent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issued %s upload for '%s' (expires in %ds)", intent.Kind, intent.Key, intent.ExpirySeconds)
	return &UploadResponse{
		UploadURL: uploadURL,
		Key:       intent.Key,
	}, nil
}

// PutMeta stores a metadata document and prunes its parents.
func (s *Service) PutMeta(ctx context.Context, name string, doc *MetaDocument) (*data.MutationResult, error) {
	if s.index == nil {
		return nil, errs.BackendUnsupported("none", string(backend.CapabilityTable))
	}
	if name == "" {
		return nil, data.MissingParameter("name")
	}
	if doc == nil {
		return nil, data.MissingParameter("body")
	}
	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return nil, data.MissingParameter("data")
	}
	if doc.CID == "" {
		return nil, data.MissingParameter("cid")
	}

	id, err := content.Parse(doc.CID)
	if err != nil {
		return nil, err
	}

	// Records are keyed by canonical text, so parents must match that form
	parents := make([]string, 0, len(doc.Parents))
	for _, parent := range doc.Parents {
		parentID, err := content.Parse(parent)
		if err != nil {
			return nil, err
		}
		parents = append(parents, content.Serialize(parentID))
	}

	return s.index.Apply(ctx, &data.MutationRequest{
		Namespace: name,
		Record: &data.MetadataRecord{
			RecordID: content.Serialize(id),
			Payload:  doc.Data,
		},
		Superseded: parents,
	})
}

// ListMeta returns every stored metadata record of a namespace.
func (s *Service) ListMeta(ctx context.Context, name string) ([]*data.MetadataRecord, error) {
	if s.index == nil {
		return nil, errs.BackendUnsupported("none", string(backend.CapabilityTable))
	}
	return s.index.ListAll(ctx, name)
}

// Connect registers a realtime connection for a namespace.
func (s *Service) Connect(ctx context.Context, connectionID, namespace string) error {
	if s.registry == nil {
		return errs.BackendUnsupported("none", string(backend.CapabilityRegistry))
	}
	if connectionID == "" {
		return data.MissingParameter("connectionId")
	}

	err := s.registry.RegisterConnection(ctx, &data.Connection{
		ID:          connectionID,
		Namespace:   namespace,
		ConnectTime: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to register connection '%s': %w", connectionID, err)
	}

	s.logger.Debug("Connected '%s' to '%s'", connectionID, namespace)
	return nil
}

// Disconnect removes a realtime connection. Unknown connections are ignored.
func (s *Service) Disconnect(ctx context.Context, connectionID string) error {
	if s.registry == nil {
		return errs.BackendUnsupported("none", string(backend.CapabilityRegistry))
	}
	if connectionID == "" {
		return data.MissingParameter("connectionId")
	}

	existed, err := s.registry.UnregisterConnection(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("failed to unregister connection '%s': %w", connectionID, err)
	}
	if !existed {
		s.logger.Debug("Connection '%s' was not registered", connectionID)
	}
	return nil
}
