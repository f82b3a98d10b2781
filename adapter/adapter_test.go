package adapter_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/go-cmp/cmp"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/remote"
	"github.com/recon/recon/remote/remotetest"
	"github.com/recon/recon/resource"
	"github.com/recon/recon/resource/schema"
	"go.uber.org/zap/zaptest"
)

var serverSchema = schema.Schema{
	Attrs: map[string]schema.Attr{
		"size":   {Required: true, Validate: "oneof=small medium large"},
		"region": {Immutable: true},
		"tags":   {},
	},
}

// fastOptions keep polling and timeouts short enough for tests.
var fastOptions = adapter.Options{
	Timeout:      250 * time.Millisecond,
	MaxRetries:   2,
	PollInterval: 2 * time.Millisecond,
}

func newAdapter(t *testing.T, api remote.API) *adapter.Adapter {
	t.Helper()
	return &adapter.Adapter{
		API:     api,
		Schemas: schema.RegistryFromSchemas(map[string]schema.Schema{"server": serverSchema}),
		Options: fastOptions,
		Logger:  zaptest.NewLogger(t),
		Backoff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Millisecond)
		},
	}
}

func record(attrs map[string]interface{}) resource.Record {
	return resource.Record{Type: "server", Name: "web1", Attrs: attrs}
}

func TestAdapter_Create(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if h.ID != "r-1" {
		t.Errorf("ID = %q, want r-1", h.ID)
	}
	if h.State != resource.StatusReady {
		t.Errorf("State = %q, want ready", h.State)
	}
	if h.Token == "" {
		t.Error("handle should carry a mutation token")
	}
	if got := rec.Count("Create"); got != 1 {
		t.Errorf("Create calls = %d, want 1", got)
	}
}

func TestAdapter_Create_polls(t *testing.T) {
	srv := &remotetest.Server{PendingReads: 3}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if h.State != resource.StatusReady {
		t.Errorf("State = %q, want ready", h.State)
	}
	if got := rec.Count("Read"); got < 3 {
		t.Errorf("Read calls = %d, want at least 3 polls", got)
	}
}

func TestAdapter_Create_validationFailsFast(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	_, err := a.Create(context.Background(), record(map[string]interface{}{"region": "eu-west-1"}))
	if !adapter.IsValidation(err) {
		t.Fatalf("error = %v, want validation failure", err)
	}
	if got := len(rec.Calls); got != 0 {
		t.Errorf("recorded %d remote calls, want 0: invalid records are never sent", got)
	}
}

func TestAdapter_Create_timeoutBound(t *testing.T) {
	srv := &remotetest.Server{NeverTerminal: true}
	a := newAdapter(t, srv)

	start := time.Now()
	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	elapsed := time.Since(start)

	if !adapter.IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if elapsed > fastOptions.Timeout+150*time.Millisecond {
		t.Errorf("Create() returned after %v, want within %v plus tolerance", elapsed, fastOptions.Timeout)
	}
	// The handle surfaces the partial resource and its last known status.
	if h.ID == "" {
		t.Error("timed-out create should surface the remote id")
	}
	if h.State != resource.StatusPending {
		t.Errorf("State = %q, want pending (last known)", h.State)
	}
}

func TestAdapter_Create_remoteError(t *testing.T) {
	srv := &remotetest.Server{FailStatus: true}
	a := newAdapter(t, srv)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if !adapter.IsProvisioningFailed(err) {
		t.Fatalf("error = %v, want provisioning failure", err)
	}
	if h.ID == "" {
		t.Error("failed create should surface the partial resource")
	}
}

func TestAdapter_Create_clientErrorNotRetried(t *testing.T) {
	srv := &remotetest.Server{Reject: &remote.Error{
		Method:     http.MethodPost,
		URL:        "/resources",
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error": "size is not provisionable"}`),
	}}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	_, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err == nil {
		t.Fatal("Create() should fail")
	}
	if !remote.IsClientError(err) {
		t.Errorf("IsClientError(%v) = false", err)
	}
	if got := rec.Count("Create"); got != 1 {
		t.Errorf("Create calls = %d, want 1: client errors are not retried", got)
	}
}

func TestAdapter_Create_serverErrorRetried(t *testing.T) {
	srv := &remotetest.Server{Reject: &remote.Error{
		Method:     http.MethodPost,
		URL:        "/resources",
		StatusCode: http.StatusServiceUnavailable,
	}}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	_, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err == nil {
		t.Fatal("Create() should fail once retries are exhausted")
	}
	want := fastOptions.MaxRetries + 1
	if got := rec.Count("Create"); got != want {
		t.Errorf("Create calls = %d, want %d (initial + retries)", got, want)
	}
}

func TestAdapter_Read_notFound(t *testing.T) {
	srv := &remotetest.Server{}
	a := newAdapter(t, srv)

	h, err := a.Read(context.Background(), resource.Handle{Type: "server", Name: "web1", ID: "r-404"})
	if !adapter.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
	if h.State != resource.StatusDeleted {
		t.Errorf("State = %q, want deleted", h.State)
	}
}

func TestAdapter_Update_idempotent(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	desired := record(map[string]interface{}{"size": "large"})

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	h, err = a.Update(context.Background(), h, desired)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	mutations := rec.Mutations()

	// Second update with the same record and no remote drift issues no
	// further mutating call.
	h2, err := a.Update(context.Background(), h, desired)
	if err != nil {
		t.Fatalf("second Update() error: %v", err)
	}
	if got := rec.Mutations(); got != mutations {
		t.Errorf("mutating calls = %d after second update, want %d", got, mutations)
	}
	if diff := cmp.Diff(h, h2); diff != "" {
		t.Errorf("no-op update should return the handle unchanged (-want +got)\n%s", diff)
	}
}

func TestAdapter_Update_sendsOnlyChangedFields(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small", "tags": map[string]interface{}{"env": "prod"}}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	_, err = a.Update(context.Background(), h, record(map[string]interface{}{"size": "large", "tags": map[string]interface{}{"env": "prod"}}))
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if got := rec.Count("Update"); got != 1 {
		t.Fatalf("Update calls = %d, want 1", got)
	}
	for _, c := range rec.Calls {
		if c.Method != "Update" {
			continue
		}
		want := map[string]interface{}{"size": "large"}
		if diff := cmp.Diff(want, c.Attrs); diff != "" {
			t.Errorf("patch body (-want +got)\n%s", diff)
		}
	}
}

func TestAdapter_Update_requiresReplacement(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small", "region": "eu-west-1"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	rec.Reset()

	_, err = a.Update(context.Background(), h, record(map[string]interface{}{"size": "small", "region": "us-east-1"}))
	if !adapter.IsRequiresReplacement(err) {
		t.Fatalf("error = %v, want replacement signal", err)
	}
	var rerr *adapter.ReplacementError
	if !errors.As(err, &rerr) {
		t.Fatal("replacement error not exposed via errors.As")
	}
	if len(rerr.Fields) != 1 || rerr.Fields[0] != "region" {
		t.Errorf("Fields = %v, want [region]", rerr.Fields)
	}
	if got := rec.Count("Update"); got != 0 {
		t.Errorf("Update calls = %d, want 0: immutable changes must never be patched", got)
	}
}

func TestAdapter_Delete_idempotent(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	h, err := a.Create(context.Background(), record(map[string]interface{}{"size": "small"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	h1, err := a.Delete(context.Background(), h)
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if h1.State != resource.StatusDeleted {
		t.Errorf("State = %q, want deleted", h1.State)
	}

	// Deleting an already-absent resource is success, not an error.
	h2, err := a.Delete(context.Background(), h)
	if err != nil {
		t.Fatalf("second Delete() error: %v", err)
	}
	if h2.State != resource.StatusDeleted {
		t.Errorf("State = %q, want deleted", h2.State)
	}
}

func TestAdapter_Delete_timeoutResumes(t *testing.T) {
	srv := &remotetest.Server{NeverTerminal: true}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)

	srv.Seed("r-9", map[string]interface{}{"size": "small"})
	h := resource.Handle{Type: "server", Name: "web1", ID: "r-9", State: resource.StatusReady}

	h, err := a.Delete(context.Background(), h)
	if !adapter.IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if h.State != resource.StatusDeleting {
		t.Fatalf("State = %q, want deleting so a retry can resume", h.State)
	}
	deletes := rec.Count("Delete")

	// The resource eventually disappears; a retried delete resumes waiting
	// instead of re-issuing the delete call.
	srv.Forget("r-9")
	h, err = a.Delete(context.Background(), h)
	if err != nil {
		t.Fatalf("resumed Delete() error: %v", err)
	}
	if h.State != resource.StatusDeleted {
		t.Errorf("State = %q, want deleted", h.State)
	}
	if got := rec.Count("Delete"); got != deletes {
		t.Errorf("Delete calls = %d, want %d: resume must not re-issue the delete", got, deletes)
	}
}

func TestAdapter_cancellationStopsPolling(t *testing.T) {
	srv := &remotetest.Server{NeverTerminal: true}
	a := newAdapter(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := a.Create(ctx, record(map[string]interface{}{"size": "small"}))
	if err == nil {
		t.Fatal("cancelled Create() should fail")
	}
	// Cancellation never issues a compensating call: the partial resource
	// stays in whatever state the last completed call left it.
	if !srv.Exists("r-1") {
		t.Error("cancellation must not delete the partially provisioned resource")
	}
}

// End to end: create, update, delete, read against the in-memory server.
func TestAdapter_lifecycle(t *testing.T) {
	srv := &remotetest.Server{}
	rec := &remotetest.Recorder{API: srv}
	a := newAdapter(t, rec)
	ctx := context.Background()

	h, err := a.Create(ctx, record(map[string]interface{}{"size": "small"}))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if h.ID != "r-1" || h.State != resource.StatusReady {
		t.Fatalf("handle = %+v, want id r-1 status ready", h)
	}

	h, err = a.Update(ctx, h, record(map[string]interface{}{"size": "large"}))
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got := rec.Count("Update"); got != 1 {
		t.Errorf("Update calls = %d, want exactly 1", got)
	}
	if h.State != resource.StatusReady || h.Attrs["size"] != "large" {
		t.Errorf("handle after update = %+v", h)
	}

	if _, err := a.Delete(ctx, h); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := a.Read(ctx, h); !adapter.IsNotFound(err) {
		t.Errorf("Read() after delete = %v, want not found", err)
	}
}
