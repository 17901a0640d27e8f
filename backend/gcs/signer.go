package gcs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/mwantia/carupload/data"
)

// SignedURLOptions returns the V4 signing options for intent, relative to now.
func SignedURLOptions(intent *data.UploadIntent, now time.Time) *storage.SignedURLOptions {
	var headers []string
	if intent.HasChecksum() {
		headers = append(headers, fmt.Sprintf("x-goog-meta-%s:%s", intent.ChecksumAlgorithm, intent.Checksum))
	}
	if intent.ACL != "" {
		headers = append(headers, "x-goog-acl:"+intent.ACL)
	}

	return &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      intent.Method,
		Expires:     now.Add(time.Duration(intent.ExpirySeconds) * time.Second),
		ContentType: intent.ContentType.String(),
		Headers:     headers,
	}
}

func (gb *GCSBackend) Issue(ctx context.Context, intent *data.UploadIntent) (string, error) {
	gb.mu.RLock()
	defer gb.mu.RUnlock()

	signed, err := gb.bucket.SignedURL(intent.Key, SignedURLOptions(intent, time.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to sign '%s': %w", intent.Key, err)
	}
	return signed, nil
}
