package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mwantia/carupload/data"
)

func (pb *PostgresBackend) RegisterConnection(ctx context.Context, conn *data.Connection) error {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	connectTime := conn.ConnectTime
	if connectTime.IsZero() {
		connectTime = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (connection_id, namespace, connect_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (connection_id) DO UPDATE
		SET namespace = EXCLUDED.namespace, connect_time = EXCLUDED.connect_time
	`, pb.connectionTable)

	if _, err := pb.pool.Exec(ctx, query, conn.ID, nullString(conn.Namespace), connectTime.Unix()); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) UnregisterConnection(ctx context.Context, connectionID string) (bool, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE connection_id = $1", pb.connectionTable)
	tag, err := pb.pool.Exec(ctx, query, connectionID)
	if err != nil {
		return false, fmt.Errorf("failed to unregister connection: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
