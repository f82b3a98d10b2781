package client_test

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/recon/recon/client"
	"github.com/recon/recon/config"
	"github.com/recon/recon/provider"
	"github.com/recon/recon/reconciler"
	"github.com/recon/recon/remote/remotetest"
	"github.com/recon/recon/storage/teststore"
	"go.uber.org/zap/zaptest"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "recon-client-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	files[config.RootFile] = ""
	for name, src := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(path, []byte(src), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newClient(t *testing.T, srv *remotetest.Server, store *teststore.Store) *client.Client {
	t.Helper()
	return &client.Client{
		Namespace: "default",
		Schemas:   provider.Default(),
		State:     store,
		Logger:    zaptest.NewLogger(t),
		API:       srv,
	}
}

const projectConfig = `
project "website" {}

resource "network" "core" {
  cidr = "10.0.0.0/16"
}

resource "server" "web1" {
  size = "small"

  depends_on = ["network.core"]
}
`

func TestClient_applyPlanDestroy(t *testing.T) {
	srv := &remotetest.Server{}
	store := &teststore.Store{}
	cli := newClient(t, srv, store)
	ctx := context.Background()

	dir := writeProject(t, map[string]string{"main.hcl": projectConfig})

	root, err := cli.FindRoot(dir)
	if err != nil {
		t.Fatalf("FindRoot() error: %v", err)
	}

	// Everything is new: the plan is two creates.
	plan, err := cli.Plan(ctx, root)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if len(plan.Changes) != 2 {
		t.Fatalf("got %d planned changes, want 2", len(plan.Changes))
	}
	for _, c := range plan.Changes {
		if c.Action != reconciler.ActionCreate {
			t.Errorf("%s action = %s, want %s", c.Addr, c.Action, reconciler.ActionCreate)
		}
	}

	if err := cli.Apply(ctx, root); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	stored, err := cli.List(ctx, root)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("got %d stored handles, want 2", len(stored))
	}
	for _, s := range stored {
		if !srv.Exists(s.Handle.ID) {
			t.Errorf("%s id %s not present remotely", s.Handle.Addr(), s.Handle.ID)
		}
	}

	// A second apply converges to no changes.
	plan, err = cli.Plan(ctx, root)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if !plan.Empty() {
		t.Errorf("plan not empty after apply: %v", plan.Changes)
	}

	if err := cli.Destroy(ctx, root); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	stored, err = cli.List(ctx, root)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("got %d stored handles after destroy, want 0", len(stored))
	}
}

func TestClient_applyDiagnostics(t *testing.T) {
	srv := &remotetest.Server{}
	store := &teststore.Store{}
	cli := newClient(t, srv, store)

	dir := writeProject(t, map[string]string{
		"main.hcl": `resource "server" "web1" { size = "small" }`, // no project block
	})

	err := cli.Apply(context.Background(), dir)
	if err == nil {
		t.Fatal("Apply() returned nil error")
	}
	var derr *client.DiagnosticsError
	if !errors.As(err, &derr) {
		t.Fatalf("error is not a DiagnosticsError: %v", err)
	}
	if !derr.HasErrors() {
		t.Error("DiagnosticsError carries no error diagnostics")
	}
}

func TestClient_findRootNotFound(t *testing.T) {
	cli := &client.Client{}
	if _, err := cli.FindRoot(os.TempDir()); err == nil {
		t.Error("FindRoot() returned nil error outside a project")
	}
}
