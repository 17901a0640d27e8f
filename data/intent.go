package data

import "net/http"

// UploadIntent describes a single signed upload before it is handed to a signer.
// It is built per request and never stored.
type UploadIntent struct {
	Kind        Kind        `json:"kind"`
	Method      string      `json:"method"`
	Key         string      `json:"key"`
	ContentType ContentType `json:"content_type"`

	// ExpirySeconds is always greater than zero.
	ExpirySeconds int `json:"expiry_seconds"`

	// Checksum is the padded base64 digest of the content identifier.
	// Empty for kinds that are not content-addressed.
	Checksum string `json:"checksum,omitempty"`
	// ChecksumAlgorithm is the multihash function name of Checksum, e.g. "sha2-256".
	ChecksumAlgorithm string `json:"checksum_algorithm,omitempty"`

	// Size is the expected content length in bytes, 0 when unknown.
	Size int64 `json:"size,omitempty"`
	// ACL is a canned access control policy, e.g. "public-read".
	ACL string `json:"acl,omitempty"`
}

// HasChecksum reports whether the upload is bound to an integrity checksum.
func (ui *UploadIntent) HasChecksum() bool {
	return ui.Checksum != ""
}

// NewUploadIntent returns an intent using the PUT method.
func NewUploadIntent(kind Kind, key string, contentType ContentType, expirySeconds int) *UploadIntent {
	return &UploadIntent{
		Kind:          kind,
		Method:        http.MethodPut,
		Key:           key,
		ContentType:   contentType,
		ExpirySeconds: expirySeconds,
	}
}
