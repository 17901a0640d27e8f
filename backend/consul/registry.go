package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"

	"github.com/mwantia/carupload/data"
)

func (cb *ConsulBackend) RegisterConnection(ctx context.Context, conn *data.Connection) error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	stored := *conn
	if stored.ConnectTime.IsZero() {
		stored.ConnectTime = time.Now()
	}

	value, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	pair := &api.KVPair{
		Key:   cb.connectionKey(conn.ID),
		Value: value,
	}
	if _, err := cb.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}
	return nil
}

func (cb *ConsulBackend) UnregisterConnection(ctx context.Context, connectionID string) (bool, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	key := cb.connectionKey(connectionID)
	pair, _, err := cb.kv.Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to read connection: %w", err)
	}
	if pair == nil {
		return false, nil
	}

	if _, err := cb.kv.Delete(key, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return false, fmt.Errorf("failed to unregister connection: %w", err)
	}
	return true, nil
}
