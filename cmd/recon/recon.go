// Package cmd implements the recon command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/recon/recon/client"
	"github.com/recon/recon/provider"
	"github.com/recon/recon/reconciler"
	"github.com/recon/recon/storage"
	"github.com/recon/recon/storage/kvbackend"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Recon is the root command.
var Recon = &cobra.Command{
	Use:           "recon",
	Short:         "Reconcile declared resources against a remote system",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	Recon.PersistentFlags().String("endpoint", DefaultEndpoint, "Remote API endpoint")
	Recon.PersistentFlags().String("namespace", "default", "Namespace to use")
	Recon.PersistentFlags().BoolP("verbose", "v", false, "Log reconciliation progress")
}

// newClient builds the client from persistent flags. The state database is
// opened lazily on first use by the bolt backend.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	endpoint, err := cmd.Flags().GetString("endpoint")
	if err != nil {
		return nil, err
	}
	ns, err := cmd.Flags().GetString("namespace")
	if err != nil {
		return nil, err
	}

	backend, err := kvbackend.NewBolt()
	if err != nil {
		return nil, err
	}

	drift := reconciler.DriftRecreate
	if onDrift, err := cmd.Flags().GetString("on-drift"); err == nil && onDrift == "error" {
		drift = reconciler.DriftError
	}

	return &client.Client{
		Endpoint:  endpoint,
		Namespace: ns,
		Schemas:   provider.Default(),
		State:     &storage.KV{Backend: backend},
		Drift:     drift,
		Logger:    logger(cmd),
	}, nil
}

func logger(cmd *cobra.Command) *zap.Logger {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil || !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return zap.NewNop()
	}
	return l
}

// fatal prints the error and exits. Configuration errors are printed as
// diagnostics with source context.
func fatal(err error) {
	if derr, ok := err.(*client.DiagnosticsError); ok {
		derr.PrintDiagnostics(os.Stderr)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// findRoot resolves the project root from optional command args.
func findRoot(cli *client.Client, args []string) string {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	root, err := cli.FindRoot(dir)
	if err != nil {
		fatal(err)
	}
	return root
}
