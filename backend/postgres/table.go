package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mwantia/carupload/data"
)

func (pb *PostgresBackend) PutRecord(ctx context.Context, record *data.MetadataRecord) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	query := fmt.Sprintf(`
		INSERT INTO %s (namespace, record_id, payload, modify_time)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (namespace, record_id) DO UPDATE
		SET payload = EXCLUDED.payload, modify_time = EXCLUDED.modify_time
	`, pb.recordTable)

	_, err := pb.pool.Exec(ctx, query, record.Namespace, record.RecordID, string(record.Payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) DeleteRecord(ctx context.Context, namespace, recordID string) (bool, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE namespace = $1 AND record_id = $2", pb.recordTable)
	tag, err := pb.pool.Exec(ctx, query, namespace, recordID)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (pb *PostgresBackend) QueryRecords(ctx context.Context, namespace string) ([]*data.MetadataRecord, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	query := fmt.Sprintf("SELECT record_id, payload::text FROM %s WHERE namespace = $1 ORDER BY record_id", pb.recordTable)
	rows, err := pb.pool.Query(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]*data.MetadataRecord, 0)
	for rows.Next() {
		var recordID, payload string
		if err := rows.Scan(&recordID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		records = append(records, &data.MetadataRecord{
			Namespace: namespace,
			RecordID:  recordID,
			Payload:   json.RawMessage(payload),
		})
	}

	return records, rows.Err()
}
