package backend

import (
	"context"

	"github.com/mwantia/carupload/data"
)

// SignerBackend issues time-limited upload URLs for an object store bucket.
type SignerBackend interface {
	Backend

	// Issue signs the intent and returns the URL the client uploads to.
	// Every header bound by the intent must be sent with the upload.
	Issue(ctx context.Context, intent *data.UploadIntent) (string, error)
}
