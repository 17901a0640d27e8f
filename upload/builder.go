package upload

import (
	"github.com/mwantia/carupload/content"
	"github.com/mwantia/carupload/data"
)

// Params carries the kind-specific upload parameters.
type Params struct {
	// CID is required for data and file uploads.
	CID string
	// Branch is required for meta uploads.
	Branch string
	// Size is the optional content length in bytes.
	Size int64
}

// Builder turns request parameters into upload intents. It holds no mutable
// state and is safe for concurrent use.
type Builder struct {
	options *BuilderOptions
}

func NewBuilder(opts ...BuilderOption) (*Builder, error) {
	options := newDefaultBuilderOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Builder{
		options: options,
	}, nil
}

// ExpirySeconds returns the configured signed URL lifetime.
func (b *Builder) ExpirySeconds() int {
	return int(b.options.Expiry.Seconds())
}

// Build validates the parameters and returns the intent to sign.
// The name is checked before the kind, so a missing name is always reported.
func (b *Builder) Build(kind data.Kind, name string, params Params) (*data.UploadIntent, error) {
	if name == "" {
		return nil, data.MissingParameter("name")
	}

	contentType, ok := data.ContentTypeForKind(kind)
	if !ok {
		return nil, data.UnsupportedKind(string(kind))
	}

	if params.Size < 0 {
		return nil, data.InvalidParameter("size")
	}

	if kind.IsContentAddressed() {
		return b.buildContentAddressed(kind, name, contentType, params)
	}

	if params.Branch == "" {
		return nil, data.MissingParameter("branch")
	}

	key, err := DeriveKey(kind, name, params.Branch)
	if err != nil {
		return nil, err
	}

	intent := data.NewUploadIntent(kind, key, contentType, b.ExpirySeconds())
	intent.Size = params.Size
	intent.ACL = b.options.ACL
	return intent, nil
}

func (b *Builder) buildContentAddressed(kind data.Kind, name string, contentType data.ContentType, params Params) (*data.UploadIntent, error) {
	if params.CID == "" {
		return nil, data.MissingParameter("car")
	}

	id, err := content.Parse(params.CID)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(kind, name, content.Serialize(id))
	if err != nil {
		return nil, err
	}

	intent := data.NewUploadIntent(kind, key, contentType, b.ExpirySeconds())
	intent.Checksum = content.Checksum(id)
	intent.ChecksumAlgorithm = id.HashName()
	intent.Size = params.Size
	intent.ACL = b.options.ACL
	return intent, nil
}
