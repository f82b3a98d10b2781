package client

import (
	"context"

	"github.com/recon/recon/reconciler"
	"github.com/recon/recon/storage"
)

// Apply converges the remote system to the configuration in the root
// directory: missing resources are created, changed resources are updated or
// replaced, and resources no longer declared are deleted.
func (cli *Client) Apply(ctx context.Context, root string) error {
	cfg, err := cli.load(root)
	if err != nil {
		return err
	}
	g, err := buildGraph(cfg)
	if err != nil {
		return err
	}
	rec, err := cli.reconciler(cfg)
	if err != nil {
		return err
	}
	return rec.Apply(ctx, cli.Namespace, cfg.Project, g)
}

// Plan previews what Apply would do without mutating anything.
func (cli *Client) Plan(ctx context.Context, root string) (*reconciler.Plan, error) {
	cfg, err := cli.load(root)
	if err != nil {
		return nil, err
	}
	g, err := buildGraph(cfg)
	if err != nil {
		return nil, err
	}
	rec, err := cli.reconciler(cfg)
	if err != nil {
		return nil, err
	}
	return rec.Plan(ctx, cli.Namespace, cfg.Project, g)
}

// Destroy deletes every resource the project has created.
func (cli *Client) Destroy(ctx context.Context, root string) error {
	cfg, err := cli.load(root)
	if err != nil {
		return err
	}
	rec, err := cli.reconciler(cfg)
	if err != nil {
		return err
	}
	return rec.Destroy(ctx, cli.Namespace, cfg.Project)
}

// List returns the stored handles for the project in the root directory.
func (cli *Client) List(ctx context.Context, root string) ([]storage.Stored, error) {
	cfg, err := cli.load(root)
	if err != nil {
		return nil, err
	}
	return cli.State.List(ctx, cli.Namespace, cfg.Project)
}
