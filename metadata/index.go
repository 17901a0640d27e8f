// Package metadata maintains the per-namespace metadata index on top of a
// table backend.
//
// A mutation writes the new record first and prunes the records it
// supersedes afterwards, so the index may briefly hold both. Readers resolve
// which record is current.
package metadata

import (
	"context"
	"fmt"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/data"
	"github.com/mwantia/carupload/log"
)

type Index struct {
	table  backend.TableBackend
	logger *log.Logger
}

func NewIndex(table backend.TableBackend, logger *log.Logger) *Index {
	if logger == nil {
		logger = log.Discard()
	}

	return &Index{
		table:  table,
		logger: logger,
	}
}

// Apply writes req.Record and then deletes every superseded record in order.
//
// A failed write returns a StorageError and nothing is deleted. Failed
// deletions return the result together with a PruneError listing the ids
// still to prune; the written record is kept.
func (ix *Index) Apply(ctx context.Context, req *data.MutationRequest) (*data.MutationResult, error) {
	if req.Record == nil {
		return nil, data.MissingParameter("record")
	}
	if req.Namespace == "" {
		return nil, data.MissingParameter("name")
	}
	if req.Record.RecordID == "" {
		return nil, data.MissingParameter("cid")
	}

	record := *req.Record
	record.Namespace = req.Namespace

	if err := ix.table.PutRecord(ctx, &record); err != nil {
		ix.logger.Error("Failed to write record '%s' in '%s': %v", record.RecordID, req.Namespace, err)
		return nil, data.StorageWriteFailed("put", err)
	}

	result := &data.MutationResult{
		RecordID: record.RecordID,
	}

	var errs data.Errors
	for _, id := range req.Superseded {
		if id == record.RecordID {
			ix.logger.Warn("Record '%s' in '%s' lists itself as superseded; skipping", id, req.Namespace)
			continue
		}

		existed, err := ix.table.DeleteRecord(ctx, req.Namespace, id)
		if err != nil {
			ix.logger.Warn("Failed to prune record '%s' in '%s': %v", id, req.Namespace, err)
			errs.Add(fmt.Errorf("%s: %w", id, err))
			result.Pending = append(result.Pending, id)
			continue
		}

		if existed {
			result.Pruned = append(result.Pruned, id)
		} else {
			ix.logger.Debug("Superseded record '%s' in '%s' already absent", id, req.Namespace)
			result.Missing = append(result.Missing, id)
		}
	}

	if len(result.Pending) > 0 {
		return result, data.PartialPruneFailure(result.Pending, errs.Errors())
	}

	ix.logger.Debug("Stored record '%s' in '%s' (pruned %d)", record.RecordID, req.Namespace, len(result.Pruned))
	return result, nil
}

// ListAll returns every record of a namespace, including superseded records
// that were not pruned yet.
func (ix *Index) ListAll(ctx context.Context, namespace string) ([]*data.MetadataRecord, error) {
	if namespace == "" {
		return nil, data.MissingParameter("name")
	}

	records, err := ix.table.QueryRecords(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query '%s': %w", namespace, err)
	}
	if records == nil {
		records = make([]*data.MetadataRecord, 0)
	}

	return records, nil
}
