package s3

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mwantia/carupload/data"
)

// checksumHeaders maps multihash function names to the S3 additional checksum
// header that makes the store verify the uploaded bytes.
var checksumHeaders = map[string]string{
	"sha2-256": "x-amz-checksum-sha256",
	"sha1":     "x-amz-checksum-sha1",
}

func checksumAlgorithms() []string {
	algorithms := make([]string, 0, len(checksumHeaders))
	for name := range checksumHeaders {
		algorithms = append(algorithms, name)
	}
	return algorithms
}

// SignedHeaders returns the headers bound into the signature for intent.
// The uploader must send exactly these headers.
func SignedHeaders(intent *data.UploadIntent) (http.Header, error) {
	headers := http.Header{}
	headers.Set("Content-Type", intent.ContentType.String())

	if intent.HasChecksum() {
		name, ok := checksumHeaders[intent.ChecksumAlgorithm]
		if !ok {
			return nil, data.UnsupportedChecksum(intent.ChecksumAlgorithm)
		}
		headers.Set(name, intent.Checksum)
	}
	if intent.Size > 0 {
		headers.Set("Content-Length", strconv.FormatInt(intent.Size, 10))
	}
	if intent.ACL != "" {
		headers.Set("x-amz-acl", intent.ACL)
	}

	return headers, nil
}

// Issue presigns a PUT for the intent's key.
func (sb *S3Backend) Issue(ctx context.Context, intent *data.UploadIntent) (string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	headers, err := SignedHeaders(intent)
	if err != nil {
		return "", err
	}

	expiry := time.Duration(intent.ExpirySeconds) * time.Second
	u, err := sb.client.PresignHeader(ctx, intent.Method, sb.config.Bucket, intent.Key, expiry, nil, headers)
	if err != nil {
		return "", fmt.Errorf("failed to presign '%s': %w", intent.Key, err)
	}

	return u.String(), nil
}
