// Package client wires configuration loading, the adapter and the
// reconciler together behind the operations the command line exposes.
package client

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/auth"
	"github.com/recon/recon/config"
	"github.com/recon/recon/graph"
	"github.com/recon/recon/reconciler"
	"github.com/recon/recon/remote"
	"github.com/recon/recon/resource/schema"
	"go.uber.org/zap"
)

// A Client runs project operations against a remote endpoint.
type Client struct {
	// Endpoint is the remote API endpoint.
	Endpoint string

	// Namespace scopes stored state. Projects with the same name in
	// different namespaces do not share resources.
	Namespace string

	// Schemas are the known resource types.
	Schemas *schema.Registry

	// State persists handles between runs.
	State reconciler.StateStorage

	// Drift selects what to do when a stored resource was deleted
	// out-of-band. The zero value recreates it.
	Drift reconciler.DriftPolicy

	// Logger logs progress. If not set, logs are discarded.
	Logger *zap.Logger

	// API overrides the remote API, for tests. If nil, an HTTP client for
	// Endpoint is used, with credentials loaded from disk when present.
	API remote.API
}

// FindRoot searches for the project root in dir. If dir is not a project
// root, parent directories are traversed until one is found.
func (cli *Client) FindRoot(dir string) (string, error) {
	loader := &config.Loader{}
	root, err := loader.Root(dir)
	if err != nil {
		return "", err
	}
	if root == "" {
		return "", errors.Errorf("no project found in %s or any parent directory", dir)
	}
	return filepath.Clean(root), nil
}

// load loads and decodes the project configuration in the root directory.
// Returned diagnostics are wrapped in a DiagnosticsError carrying the
// sources, so the caller can print them with context.
func (cli *Client) load(root string) (*config.Config, error) {
	loader := &config.Loader{}
	body, diags := loader.Load(root)
	if diags.HasErrors() {
		return nil, &DiagnosticsError{loader: loader, Diagnostics: diags}
	}
	cfg, diags := config.Decode(body)
	if diags.HasErrors() {
		return nil, &DiagnosticsError{loader: loader, Diagnostics: diags}
	}
	return cfg, nil
}

func (cli *Client) api() (remote.API, error) {
	if cli.API != nil {
		return cli.API, nil
	}
	c := &remote.Client{Endpoint: cli.Endpoint}
	dir, err := auth.DefaultDir()
	if err != nil {
		return nil, err
	}
	creds, err := auth.Load(dir, cli.Endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "load credentials")
	}
	if creds != nil {
		c.Tokens = creds.TokenSource()
	}
	return c, nil
}

// reconciler builds the reconciler for a loaded configuration.
func (cli *Client) reconciler(cfg *config.Config) (*reconciler.Reconciler, error) {
	api, err := cli.api()
	if err != nil {
		return nil, err
	}
	return &reconciler.Reconciler{
		Adapter: &adapter.Adapter{
			API:     api,
			Schemas: cli.Schemas,
			Options: cfg.Options,
			Logger:  cli.Logger,
		},
		State:  cli.State,
		Drift:  cli.Drift,
		Logger: cli.Logger,
	}, nil
}

// buildGraph builds the dependency graph for the declared records.
func buildGraph(cfg *config.Config) (*graph.Graph, error) {
	g, err := graph.FromRecords(cfg.Records)
	if err != nil {
		return nil, errors.Wrap(err, "resolve dependencies")
	}
	return g, nil
}
