package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/consul/api"

	"github.com/mwantia/carupload/data"
)

func (cb *ConsulBackend) PutRecord(ctx context.Context, record *data.MetadataRecord) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	pair := &api.KVPair{
		Key:   cb.recordKey(record.Namespace, record.RecordID),
		Value: []byte(record.Payload),
	}

	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

func (cb *ConsulBackend) DeleteRecord(ctx context.Context, namespace, recordID string) (bool, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	key := cb.recordKey(namespace, recordID)
	pair, _, err := cb.kv.Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to read record: %w", err)
	}
	if pair == nil {
		return false, nil
	}

	if _, err := cb.kv.Delete(key, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	return true, nil
}

func (cb *ConsulBackend) QueryRecords(ctx context.Context, namespace string) ([]*data.MetadataRecord, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	prefix := cb.recordPrefix(namespace)
	pairs, _, err := cb.kv.List(prefix, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*data.MetadataRecord, 0, len(pairs))
	for _, pair := range pairs {
		escaped := strings.TrimPrefix(pair.Key, prefix)
		// Nested keys belong to no record
		if escaped == "" || strings.Contains(escaped, "/") {
			continue
		}

		recordID, err := url.PathUnescape(escaped)
		if err != nil {
			return nil, fmt.Errorf("invalid record key '%s': %w", pair.Key, err)
		}

		records = append(records, &data.MetadataRecord{
			Namespace: namespace,
			RecordID:  recordID,
			Payload:   json.RawMessage(pair.Value),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].RecordID < records[j].RecordID
	})
	return records, nil
}
