package s3

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mwantia/carupload/backend"
)

// S3Backend presigns uploads for an S3-compatible bucket.
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
}

type S3BackendConfig struct {
	// Endpoint without scheme (default: "s3.amazonaws.com")
	Endpoint string
	Bucket   string
	// Region must be set to presign without a bucket location lookup.
	Region string

	// Static credentials; when empty, environment and instance credentials are used.
	AccessKey    string
	SecretKey    string
	SessionToken string

	Insecure bool
	// VerifyBucket makes Open fail when the bucket does not exist.
	VerifyBucket bool
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Bucket == "" {
		return nil, fmt.Errorf("missing s3 bucket")
	}
	if config.Endpoint == "" {
		config.Endpoint = "s3.amazonaws.com"
	}

	var creds *credentials.Credentials
	if config.AccessKey != "" {
		creds = credentials.NewStaticV4(config.AccessKey, config.SecretKey, config.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{
				Client: &http.Client{Transport: http.DefaultTransport},
			},
		})
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: !config.Insecure,
		Region: config.Region,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		config: config,
	}, nil
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.config.VerifyBucket {
		return nil
	}

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", sb.config.Bucket)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilitySigner,
			backend.CapabilityChecksum,
			backend.CapabilityContentLength,
		},
		ChecksumAlgorithms: checksumAlgorithms(),
	}
}
