package memory

import (
	"context"
	"time"

	"github.com/mwantia/carupload/data"
)

func (mb *MemoryBackend) RegisterConnection(ctx context.Context, conn *data.Connection) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return data.ErrBackendClosed
	}

	stored := *conn
	if stored.ConnectTime.IsZero() {
		stored.ConnectTime = time.Now()
	}
	mb.connections[conn.ID] = &stored
	return nil
}

func (mb *MemoryBackend) UnregisterConnection(ctx context.Context, connectionID string) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return false, data.ErrBackendClosed
	}

	_, existed := mb.connections[connectionID]
	delete(mb.connections, connectionID)
	return existed, nil
}

// Connection returns a copy of a registered connection.
func (mb *MemoryBackend) Connection(connectionID string) (*data.Connection, bool) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	conn, ok := mb.connections[connectionID]
	if !ok {
		return nil, false
	}
	copied := *conn
	return &copied, true
}
