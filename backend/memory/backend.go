package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/tidwall/btree"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/data"
)

// MemoryBackend keeps the metadata table and the connection registry in process
// memory and signs URLs against a fake bucket. Intended for tests and local runs.
type MemoryBackend struct {
	mu sync.RWMutex

	records     *btree.BTreeG[recordEntry]
	connections map[string]*data.Connection

	bucket string
	closed bool
}

type recordEntry struct {
	namespace string
	recordID  string
	payload   []byte
}

func lessRecordEntry(a, b recordEntry) bool {
	if a.namespace != b.namespace {
		return a.namespace < b.namespace
	}
	return a.recordID < b.recordID
}

func NewMemoryBackend(bucket string) *MemoryBackend {
	if bucket == "" {
		bucket = "memory"
	}

	return &MemoryBackend{
		records:     btree.NewBTreeG(lessRecordEntry),
		connections: make(map[string]*data.Connection),
		bucket:      bucket,
	}
}

// Returns the identifier name defined for this backend
func (*MemoryBackend) Name() string {
	return "memory"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (mb *MemoryBackend) Open(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.closed = false
	return nil
}

// Close is part of the lifecycle behaviour and drops all stored state.
func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.records.Clear()
	clear(mb.connections)
	mb.closed = true
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MemoryBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityTable,
			backend.CapabilityRegistry,
			backend.CapabilitySigner,
			backend.CapabilityChecksum,
			backend.CapabilityContentLength,
		},
		ChecksumAlgorithms: slices.Clone(checksumAlgorithms),
	}
}
