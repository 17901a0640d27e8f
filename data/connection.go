package data

import "time"

// Connection is an entry of the realtime connection registry.
type Connection struct {
	ID          string    `json:"connection_id"`
	Namespace   string    `json:"namespace,omitempty"`
	ConnectTime time.Time `json:"connect_time"`
}
