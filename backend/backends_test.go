package backend_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/backend/memory"
	"github.com/mwantia/carupload/backend/sqlite"
	"github.com/mwantia/carupload/data"
)

// StoreBackend is implemented by every backend that provides both a table and a registry.
type StoreBackend interface {
	backend.TableBackend
	backend.RegistryBackend
}

// TestBackendFactory creates a new backend instance for testing.
type TestBackendFactory func(t *testing.T) (StoreBackend, error)

// GetTestBackendFactories returns all backend implementations that run without external services.
func GetTestBackendFactories() map[string]TestBackendFactory {
	return map[string]TestBackendFactory{
		"memory": func(t *testing.T) (StoreBackend, error) {
			return memory.NewMemoryBackend(""), nil
		},
		"sqlite": func(t *testing.T) (StoreBackend, error) {
			return sqlite.NewSQLiteBackend(&sqlite.SQLiteBackendConfig{Path: ":memory:"})
		},
		// Table names as deployed by a CloudFormation stack
		"sqlite-stack-names": func(t *testing.T) (StoreBackend, error) {
			return sqlite.NewSQLiteBackend(&sqlite.SQLiteBackendConfig{
				Path:            ":memory:",
				RecordTable:     "sam-app-metaStore",
				ConnectionTable: "sam-app.Connections-1A2B",
			})
		},
	}
}

func openTestBackend(t *testing.T, factory TestBackendFactory) StoreBackend {
	t.Helper()

	b, err := factory(t)
	if err != nil {
		t.Fatalf("Backend init failed: %v", err)
	}
	if err := b.Open(t.Context()); err != nil {
		t.Fatalf("Backend open failed: %v", err)
	}
	t.Cleanup(func() {
		b.Close(t.Context())
	})
	return b
}

func record(namespace, recordID, payload string) *data.MetadataRecord {
	return &data.MetadataRecord{
		Namespace: namespace,
		RecordID:  recordID,
		Payload:   json.RawMessage(payload),
	}
}

// TestAllBackends_RecordLifecycle verifies put, overwrite, query and delete
// across all backend implementations.
func TestAllBackends_RecordLifecycle(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if !b.GetCapabilities().Contains(backend.CapabilityTable) {
				tst.Fatalf("backend %s does not report the table capability", b.Name())
			}

			for _, r := range []*data.MetadataRecord{
				record("ns", "c2", `{"v":2}`),
				record("ns", "c1", `{"v":1}`),
				record("other", "c1", `{"v":9}`),
			} {
				if err := b.PutRecord(ctx, r); err != nil {
					tst.Fatalf("PutRecord failed: %v", err)
				}
			}

			// Overwrite is a single write, not a duplicate
			if err := b.PutRecord(ctx, record("ns", "c2", `{"v":3}`)); err != nil {
				tst.Fatalf("PutRecord overwrite failed: %v", err)
			}

			got, err := b.QueryRecords(ctx, "ns")
			if err != nil {
				tst.Fatalf("QueryRecords failed: %v", err)
			}
			want := []*data.MetadataRecord{
				record("ns", "c1", `{"v":1}`),
				record("ns", "c2", `{"v":3}`),
			}
			if diff := cmp.Diff(want, got); diff != "" {
				tst.Errorf("records mismatch (-want +got):\n%s", diff)
			}

			existed, err := b.DeleteRecord(ctx, "ns", "c1")
			if err != nil {
				tst.Fatalf("DeleteRecord failed: %v", err)
			}
			if !existed {
				tst.Error("expected DeleteRecord to report an existing record")
			}

			existed, err = b.DeleteRecord(ctx, "ns", "c1")
			if err != nil {
				tst.Fatalf("repeated DeleteRecord failed: %v", err)
			}
			if existed {
				tst.Error("expected repeated DeleteRecord to report a missing record")
			}

			got, err = b.QueryRecords(ctx, "other")
			if err != nil {
				tst.Fatalf("QueryRecords failed: %v", err)
			}
			if len(got) != 1 || got[0].RecordID != "c1" {
				tst.Errorf("delete leaked across namespaces: %+v", got)
			}
		})
	}
}

// TestAllBackends_EmptyNamespace verifies that an unknown namespace is not an error.
func TestAllBackends_EmptyNamespace(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			b := openTestBackend(tst, factory)

			got, err := b.QueryRecords(tst.Context(), "missing")
			if err != nil {
				tst.Fatalf("QueryRecords failed: %v", err)
			}
			if got == nil || len(got) != 0 {
				tst.Errorf("expected empty non-nil slice, got %#v", got)
			}
		})
	}
}

// TestAllBackends_NamespacePrefix verifies that a namespace never matches another
// namespace sharing its prefix.
func TestAllBackends_NamespacePrefix(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			if err := b.PutRecord(ctx, record("db", "c1", `{}`)); err != nil {
				tst.Fatalf("PutRecord failed: %v", err)
			}
			if err := b.PutRecord(ctx, record("db2", "c1", `{}`)); err != nil {
				tst.Fatalf("PutRecord failed: %v", err)
			}

			got, err := b.QueryRecords(ctx, "db")
			if err != nil {
				tst.Fatalf("QueryRecords failed: %v", err)
			}
			if len(got) != 1 {
				tst.Errorf("expected 1 record in 'db', got %d", len(got))
			}
		})
	}
}

// TestAllBackends_Registry verifies idempotent connection registration and removal.
func TestAllBackends_Registry(t *testing.T) {
	for name, factory := range GetTestBackendFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			b := openTestBackend(tst, factory)

			conn := &data.Connection{ID: "conn-1", Namespace: "mydb"}
			if err := b.RegisterConnection(ctx, conn); err != nil {
				tst.Fatalf("RegisterConnection failed: %v", err)
			}
			if err := b.RegisterConnection(ctx, conn); err != nil {
				tst.Fatalf("repeated RegisterConnection failed: %v", err)
			}

			existed, err := b.UnregisterConnection(ctx, "conn-1")
			if err != nil {
				tst.Fatalf("UnregisterConnection failed: %v", err)
			}
			if !existed {
				tst.Error("expected registered connection to exist")
			}

			existed, err = b.UnregisterConnection(ctx, "conn-1")
			if err != nil {
				tst.Fatalf("repeated UnregisterConnection failed: %v", err)
			}
			if existed {
				tst.Error("expected second removal to report a missing connection")
			}
		})
	}
}

func TestNamespacedKey(t *testing.T) {
	if backend.NamespacedKey("a/b", "c") == backend.NamespacedKey("a", "b/c") {
		t.Error("namespaced keys collide across separator positions")
	}
	if got := backend.NamespacedKey("mydb", "bafy"); got != "mydb/bafy" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestValidTableName(t *testing.T) {
	for _, name := range []string{"metaStore", "connections", "_t1", "sam-app-metaStore", "prod.connections-1A2B"} {
		if !backend.ValidTableName(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}
	for _, name := range []string{"", "-meta", "..", "meta;drop", "meta store", `meta"store`} {
		if backend.ValidTableName(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}
