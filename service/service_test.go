package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mwantia/carupload/backend"
	"github.com/mwantia/carupload/backend/memory"
	"github.com/mwantia/carupload/config"
	"github.com/mwantia/carupload/data"
)

const (
	testCID    = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
	testRawCID = "bafkreibkndny6zoinx5lkrvbgzq27y5ni6y5plc5oxkaspnwe4gm5iohc4"
)

func newTestService(t *testing.T) (*Service, *memory.MemoryBackend) {
	t.Helper()

	mem := memory.NewMemoryBackend("uploads")
	svc, err := New(WithSigner(mem), WithTable(mem), WithRegistry(mem))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := svc.Open(t.Context()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		svc.Close(context.Background())
	})
	return svc, mem
}

func TestService_UploadURL(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.UploadURL(t.Context(), UploadRequest{Kind: data.KindData, Name: "mydb", CID: testCID})
	if err != nil {
		t.Fatalf("UploadURL failed: %v", err)
	}
	if resp.Key != "data/mydb/"+testCID+".car" {
		t.Errorf("unexpected key %q", resp.Key)
	}

	u, err := url.Parse(resp.UploadURL)
	if err != nil {
		t.Fatalf("invalid upload url: %v", err)
	}
	if u.Host != "uploads" || u.Path != "/"+resp.Key {
		t.Errorf("unexpected upload url %q", resp.UploadURL)
	}
	if got := u.Query().Get("checksum-sha2-256"); got != "w8RzPsiv/QbPnp/1D/xrzS7IWmFwAEu3CWacMd6UORo=" {
		t.Errorf("unexpected checksum %q", got)
	}
	if got := u.Query().Get("expires"); got != "300" {
		t.Errorf("expected expiry 300, got %q", got)
	}
}

func TestService_UploadURLCallerErrors(t *testing.T) {
	svc, _ := newTestService(t)

	tests := map[string]struct {
		req  UploadRequest
		want error
	}{
		"missing name": {UploadRequest{Kind: data.KindData, CID: testCID}, data.ErrMissingParameter},
		"missing car":  {UploadRequest{Kind: data.KindFile, Name: "mydb"}, data.ErrMissingParameter},
		"malformed":    {UploadRequest{Kind: data.KindData, Name: "mydb", CID: "nope"}, data.ErrMalformedIdentifier},
		"sql":          {UploadRequest{Kind: data.Kind("sql"), Name: "mydb"}, data.ErrUnsupportedKind},
	}

	for name, tt := range tests {
		t.Run(name, func(tst *testing.T) {
			_, err := svc.UploadURL(tst.Context(), tt.req)
			if !errors.Is(err, tt.want) {
				tst.Errorf("expected %v, got %v", tt.want, err)
			}
			if !data.IsCallerError(err) {
				tst.Errorf("expected a caller error, got %v", err)
			}
		})
	}
}

func TestService_UploadURLUnverifiableChecksum(t *testing.T) {
	svc, mem := newTestService(t)

	// sha2-512 multihash of "hello car"
	cid := "bafkrgqbrg2virdzutbgkrao6pc4fvvyzf23ahsrjpvem2fsuu7u63fwwsyed4ghu4ehibatxrhjaxqdb4pyeakrn3rn6garj4icvq6swltwzc"
	if mem.GetCapabilities().SupportsChecksum("sha2-512") {
		t.Fatal("memory backend unexpectedly verifies sha2-512")
	}

	_, err := svc.UploadURL(t.Context(), UploadRequest{Kind: data.KindData, Name: "mydb", CID: cid})
	if !errors.Is(err, data.ErrChecksumUnsupported) {
		t.Fatalf("expected ErrChecksumUnsupported, got %v", err)
	}
	if !data.IsCallerError(err) {
		t.Errorf("expected a caller error, got %v", err)
	}
}

func TestService_PutAndListMeta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	first := "bafkreibkndny6zoinx5lkrvbgzq27y5ni6y5plc5oxkaspnwe4gm5iohc4"
	if _, err := svc.PutMeta(ctx, "mydb", &MetaDocument{CID: first, Data: json.RawMessage(`{"head":1}`)}); err != nil {
		t.Fatalf("PutMeta failed: %v", err)
	}

	result, err := svc.PutMeta(ctx, "mydb", &MetaDocument{
		CID:     testCID,
		Data:    json.RawMessage(`{"head":2}`),
		Parents: []string{first},
	})
	if err != nil {
		t.Fatalf("PutMeta failed: %v", err)
	}
	if diff := cmp.Diff([]string{first}, result.Pruned); diff != "" {
		t.Errorf("pruned mismatch (-want +got):\n%s", diff)
	}

	records, err := svc.ListMeta(ctx, "mydb")
	if err != nil {
		t.Fatalf("ListMeta failed: %v", err)
	}
	want := []*data.MetadataRecord{{
		Namespace: "mydb",
		RecordID:  testCID,
		Payload:   json.RawMessage(`{"head":2}`),
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestService_PutMetaNonCanonicalParents(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	// base58btc forms of testRawCID and testCID
	first := "zb2rhZVq43DePbtRDSoJC3KrRTj9TeztujkAygjap4Rb3WkH4"
	second := "zdj7Wic6KcJAfWz1c9o4M6kq9Lwd5BfbxkVafnrojaaGiSFxM"

	if _, err := svc.PutMeta(ctx, "mydb", &MetaDocument{CID: first, Data: json.RawMessage(`{"head":1}`)}); err != nil {
		t.Fatalf("PutMeta failed: %v", err)
	}

	result, err := svc.PutMeta(ctx, "mydb", &MetaDocument{
		CID:     second,
		Data:    json.RawMessage(`{"head":2}`),
		Parents: []string{first},
	})
	if err != nil {
		t.Fatalf("PutMeta failed: %v", err)
	}
	if result.RecordID != testCID {
		t.Errorf("expected canonical record id, got %q", result.RecordID)
	}
	if diff := cmp.Diff([]string{testRawCID}, result.Pruned); diff != "" {
		t.Errorf("pruned mismatch (-want +got):\n%s", diff)
	}

	records, err := svc.ListMeta(ctx, "mydb")
	if err != nil {
		t.Fatalf("ListMeta failed: %v", err)
	}
	if len(records) != 1 || records[0].RecordID != testCID {
		t.Errorf("expected only %s to remain, got %+v", testCID, records)
	}
}

func TestService_PutMetaMalformedParent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	_, err := svc.PutMeta(ctx, "mydb", &MetaDocument{
		CID:     testCID,
		Data:    json.RawMessage(`{"head":1}`),
		Parents: []string{testRawCID, "not-a-cid"},
	})
	if !errors.Is(err, data.ErrMalformedIdentifier) {
		t.Fatalf("expected ErrMalformedIdentifier, got %v", err)
	}

	records, err := svc.ListMeta(ctx, "mydb")
	if err != nil {
		t.Fatalf("ListMeta failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected nothing stored, got %+v", records)
	}
}

func TestService_PutMetaValidation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := map[string]struct {
		name string
		doc  *MetaDocument
		want error
	}{
		"missing data": {"mydb", &MetaDocument{CID: testCID}, data.ErrMissingParameter},
		"null data":    {"mydb", &MetaDocument{CID: testCID, Data: json.RawMessage("null")}, data.ErrMissingParameter},
		"missing cid":  {"mydb", &MetaDocument{Data: json.RawMessage(`{}`)}, data.ErrMissingParameter},
		"bad cid":      {"mydb", &MetaDocument{CID: "x", Data: json.RawMessage(`{}`)}, data.ErrMalformedIdentifier},
		"missing name": {"", &MetaDocument{CID: testCID, Data: json.RawMessage(`{}`)}, data.ErrMissingParameter},
	}

	for name, tt := range tests {
		t.Run(name, func(tst *testing.T) {
			_, err := svc.PutMeta(tst.Context(), tt.name, tt.doc)
			if !errors.Is(err, tt.want) {
				tst.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestService_ConnectDisconnect(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := t.Context()

	if err := svc.Connect(ctx, "abc=", "mydb"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if conn, ok := mem.Connection("abc="); !ok || conn.Namespace != "mydb" {
		t.Fatalf("expected registered connection, got %+v", conn)
	}

	if err := svc.Disconnect(ctx, "abc="); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if _, ok := mem.Connection("abc="); ok {
		t.Error("connection still registered after disconnect")
	}

	// Unknown connections disconnect cleanly
	if err := svc.Disconnect(ctx, "abc="); err != nil {
		t.Errorf("repeated Disconnect failed: %v", err)
	}
	if err := svc.Disconnect(ctx, ""); !errors.Is(err, data.ErrMissingParameter) {
		t.Errorf("expected ErrMissingParameter, got %v", err)
	}
}

// signerOnly reports only the signer capability.
type signerOnly struct {
	*memory.MemoryBackend
}

func (signerOnly) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{backend.CapabilitySigner},
	}
}

func TestService_CapabilityCheck(t *testing.T) {
	only := signerOnly{memory.NewMemoryBackend("")}

	if _, err := New(WithSigner(only)); err != nil {
		t.Fatalf("New with signer failed: %v", err)
	}

	_, err := New(WithTable(only))
	if !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported, got %v", err)
	}
}

func TestService_MissingBackends(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := svc.UploadURL(t.Context(), UploadRequest{Kind: data.KindMeta, Name: "mydb", Branch: "main"}); !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported for UploadURL, got %v", err)
	}
	if _, err := svc.ListMeta(t.Context(), "mydb"); !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported for ListMeta, got %v", err)
	}
	if err := svc.Disconnect(t.Context(), "abc"); !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported for Disconnect, got %v", err)
	}
}

func TestNewFromConfig_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Signer.Backend = "memory"
	cfg.Signer.Bucket = "local"
	cfg.Upload.ExpirySeconds = 60

	svc, err := NewFromConfig(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if len(svc.backends()) != 1 {
		t.Errorf("expected the memory backend to be shared, got %d backends", len(svc.backends()))
	}

	resp, err := svc.UploadURL(t.Context(), UploadRequest{Kind: data.KindMeta, Name: "mydb", Branch: "main"})
	if err != nil {
		t.Fatalf("UploadURL failed: %v", err)
	}
	u, err := url.Parse(resp.UploadURL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	if u.Query().Get("expires") != "60" {
		t.Errorf("expected configured expiry, got %q", u.Query().Get("expires"))
	}
}

func TestCloseBackends(t *testing.T) {
	mem := memory.NewMemoryBackend("uploads")
	if err := mem.Open(t.Context()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := closeBackends(t.Context(), mem, nil, mem); err != nil {
		t.Fatalf("closeBackends failed: %v", err)
	}

	_, err := mem.Issue(t.Context(), &data.UploadIntent{Kind: data.KindMeta, Method: "PUT", Key: "meta/mydb/main.json", ExpirySeconds: 1})
	if !errors.Is(err, data.ErrBackendClosed) {
		t.Errorf("expected ErrBackendClosed, got %v", err)
	}
}

func TestNewFromConfig_UnknownRegistry(t *testing.T) {
	cfg := config.Default()
	cfg.Signer.Backend = "memory"
	cfg.Table.Backend = "memory"
	cfg.Registry.Backend = "ftp"

	_, err := NewFromConfig(t.Context(), cfg, nil)
	if !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported, got %v", err)
	}
}

func TestNewFromConfig_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Signer.Backend = "ftp"

	_, err := NewFromConfig(t.Context(), cfg, nil)
	if !errors.Is(err, data.ErrBackendUnsupported) {
		t.Errorf("expected ErrBackendUnsupported, got %v", err)
	}
}
