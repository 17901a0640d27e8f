package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mwantia/carupload/backend"
)

const (
	DefaultRecordTable     = "metaStore"
	DefaultConnectionTable = "connections"
)

// SQLiteBackend stores metadata records and connections in SQLite tables.
//
// Records are keyed by (namespace, record_id); connections by connection_id.
type SQLiteBackend struct {
	mu sync.RWMutex
	db *sql.DB

	recordTable     string
	connectionTable string
}

type SQLiteBackendConfig struct {
	// Path of the database file, or ":memory:"
	Path string

	RecordTable     string
	ConnectionTable string
}

// NewSQLiteBackend creates a new SQLite-backed table and registry backend.
func NewSQLiteBackend(config *SQLiteBackendConfig) (*SQLiteBackend, error) {
	if config == nil {
		config = &SQLiteBackendConfig{}
	}
	if config.Path == "" {
		config.Path = ":memory:"
	}
	if config.RecordTable == "" {
		config.RecordTable = DefaultRecordTable
	}
	if config.ConnectionTable == "" {
		config.ConnectionTable = DefaultConnectionTable
	}

	for _, name := range []string{config.RecordTable, config.ConnectionTable} {
		if !backend.ValidTableName(name) {
			return nil, fmt.Errorf("invalid table name '%s'", name)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, err
	}

	// Every connection to ":memory:" would open a separate database
	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}

	backend := &SQLiteBackend{
		db:              db,
		recordTable:     quoteIdentifier(config.RecordTable),
		connectionTable: quoteIdentifier(config.ConnectionTable),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// quoteIdentifier quotes a validated table name for interpolation.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// initSchema creates the database schema.
func (sb *SQLiteBackend) initSchema() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		namespace TEXT NOT NULL,
		record_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		modify_time INTEGER NOT NULL,
		PRIMARY KEY (namespace, record_id)
	);

	CREATE TABLE IF NOT EXISTS %[2]s (
		connection_id TEXT PRIMARY KEY,
		namespace TEXT,
		connect_time INTEGER NOT NULL
	);
	`, sb.recordTable, sb.connectionTable)

	_, err := sb.db.Exec(schema)
	return err
}

// Returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and closes the database.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.db.Close()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityTable,
			backend.CapabilityRegistry,
		},
	}
}
