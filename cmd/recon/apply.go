package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var applyCommand = &cobra.Command{
	Use:   "apply [dir]",
	Short: "Apply resource changes",
	Long: `Apply converges the remote system to the project configuration.

Missing resources are created, changed resources are updated or replaced,
and resources that are no longer declared are deleted.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli, err := newClient(cmd)
		if err != nil {
			fatal(err)
		}

		root := findRoot(cli, args)
		ctx := signalContext(context.Background())

		if err := cli.Apply(ctx, root); err != nil {
			fatal(err)
		}
	},
}

func init() {
	applyCommand.Flags().String("on-drift", "recreate", "What to do when a resource was deleted out-of-band: recreate or error")
	Recon.AddCommand(applyCommand)
}
