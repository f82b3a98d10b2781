package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCommand = &cobra.Command{
	Use:     "list [dir]",
	Aliases: []string{"ls"},
	Short:   "List resources the project has created",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli, err := newClient(cmd)
		if err != nil {
			fatal(err)
		}

		root := findRoot(cli, args)
		ctx := signalContext(context.Background())

		stored, err := cli.List(ctx, root)
		if err != nil {
			fatal(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tID\tSTATUS")
		for _, s := range stored {
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Handle.Addr(), s.Handle.ID, s.Handle.State)
		}
		if err := w.Flush(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	Recon.AddCommand(listCommand)
}
