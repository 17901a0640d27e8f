package backend

import (
	"context"

	"github.com/mwantia/carupload/data"
)

// TableBackend stores metadata records under the composite key (namespace, record id).
type TableBackend interface {
	Backend

	// PutRecord inserts or overwrites a record with a single atomic write.
	PutRecord(ctx context.Context, record *data.MetadataRecord) error

	// DeleteRecord removes a record. Deleting an absent record is not an error;
	// existed reports whether anything was removed.
	DeleteRecord(ctx context.Context, namespace, recordID string) (existed bool, err error)

	// QueryRecords returns every record of a namespace ordered by record id.
	// An unknown namespace yields an empty slice.
	QueryRecords(ctx context.Context, namespace string) ([]*data.MetadataRecord, error)
}
