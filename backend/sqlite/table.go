package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwantia/carupload/data"
)

func (sb *SQLiteBackend) PutRecord(ctx context.Context, record *data.MetadataRecord) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	query := fmt.Sprintf(`
		INSERT INTO %s (namespace, record_id, payload, modify_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, record_id) DO UPDATE
		SET payload = excluded.payload, modify_time = excluded.modify_time
	`, sb.recordTable)

	_, err := sb.db.ExecContext(ctx, query, record.Namespace, record.RecordID, string(record.Payload), time.Now().Unix())
	return err
}

func (sb *SQLiteBackend) DeleteRecord(ctx context.Context, namespace, recordID string) (bool, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE namespace = ? AND record_id = ?", sb.recordTable)
	result, err := sb.db.ExecContext(ctx, query, namespace, recordID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (sb *SQLiteBackend) QueryRecords(ctx context.Context, namespace string) ([]*data.MetadataRecord, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	query := fmt.Sprintf("SELECT record_id, payload FROM %s WHERE namespace = ? ORDER BY record_id", sb.recordTable)
	rows, err := sb.db.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*data.MetadataRecord, 0)
	for rows.Next() {
		var recordID, payload string
		if err := rows.Scan(&recordID, &payload); err != nil {
			return nil, err
		}

		records = append(records, &data.MetadataRecord{
			Namespace: namespace,
			RecordID:  recordID,
			Payload:   json.RawMessage(payload),
		})
	}

	return records, rows.Err()
}
