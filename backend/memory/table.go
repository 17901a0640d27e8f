package memory

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mwantia/carupload/data"
)

func (mb *MemoryBackend) PutRecord(ctx context.Context, record *data.MetadataRecord) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return data.ErrBackendClosed
	}

	mb.records.Set(recordEntry{
		namespace: record.Namespace,
		recordID:  record.RecordID,
		payload:   bytes.Clone(record.Payload),
	})
	return nil
}

func (mb *MemoryBackend) DeleteRecord(ctx context.Context, namespace, recordID string) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return false, data.ErrBackendClosed
	}

	_, existed := mb.records.Delete(recordEntry{namespace: namespace, recordID: recordID})
	return existed, nil
}

func (mb *MemoryBackend) QueryRecords(ctx context.Context, namespace string) ([]*data.MetadataRecord, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if mb.closed {
		return nil, data.ErrBackendClosed
	}

	records := make([]*data.MetadataRecord, 0)
	// The empty record id is the smallest key of the namespace
	mb.records.Ascend(recordEntry{namespace: namespace}, func(entry recordEntry) bool {
		if entry.namespace != namespace {
			return false
		}
		records = append(records, &data.MetadataRecord{
			Namespace: entry.namespace,
			RecordID:  entry.recordID,
			Payload:   json.RawMessage(bytes.Clone(entry.payload)),
		})
		return true
	})

	return records, nil
}
