package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mwantia/carupload/data"
)

func (sb *SQLiteBackend) RegisterConnection(ctx context.Context, conn *data.Connection) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	connectTime := conn.ConnectTime
	if connectTime.IsZero() {
		connectTime = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (connection_id, namespace, connect_time)
		VALUES (?, ?, ?)
		ON CONFLICT (connection_id) DO UPDATE
		SET namespace = excluded.namespace, connect_time = excluded.connect_time
	`, sb.connectionTable)

	_, err := sb.db.ExecContext(ctx, query, conn.ID, nullString(conn.Namespace), connectTime.Unix())
	return err
}

func (sb *SQLiteBackend) UnregisterConnection(ctx context.Context, connectionID string) (bool, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE connection_id = ?", sb.connectionTable)
	result, err := sb.db.ExecContext(ctx, query, connectionID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
