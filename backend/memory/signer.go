package memory

import (
	"context"
	"net/url"
	"slices"
	"strconv"

	"github.com/mwantia/carupload/data"
)

// checksumAlgorithms mirrors the integrity headers an S3 store verifies.
var checksumAlgorithms = []string{"sha2-256", "sha1"}

// Issue returns an unsigned memory:// URL encoding every bound header as a
// query parameter, so callers can assert on what a real signer would bind.
func (mb *MemoryBackend) Issue(ctx context.Context, intent *data.UploadIntent) (string, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed {
		return "", data.ErrBackendClosed
	}

	query := url.Values{}
	query.Set("method", intent.Method)
	query.Set("expires", strconv.Itoa(intent.ExpirySeconds))
	query.Set("content-type", intent.ContentType.String())
	if intent.HasChecksum() {
		if !slices.Contains(checksumAlgorithms, intent.ChecksumAlgorithm) {
			return "", data.UnsupportedChecksum(intent.ChecksumAlgorithm)
		}
		query.Set("checksum-"+intent.ChecksumAlgorithm, intent.Checksum)
	}
	if intent.Size > 0 {
		query.Set("content-length", strconv.FormatInt(intent.Size, 10))
	}
	if intent.ACL != "" {
		query.Set("acl", intent.ACL)
	}

	u := url.URL{
		Scheme:   "memory",
		Host:     mb.bucket,
		Path:     "/" + intent.Key,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}
