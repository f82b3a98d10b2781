package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var planCommand = &cobra.Command{
	Use:   "plan [dir]",
	Short: "Preview resource changes without applying them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli, err := newClient(cmd)
		if err != nil {
			fatal(err)
		}

		root := findRoot(cli, args)
		ctx := signalContext(context.Background())

		plan, err := cli.Plan(ctx, root)
		if err != nil {
			fatal(err)
		}

		if plan.Empty() {
			fmt.Println("No changes.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, c := range plan.Changes {
			if len(c.Fields) > 0 {
				fmt.Fprintf(w, "%s\t%s\t%v\n", c.Addr, c.Action, c.Fields)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t\n", c.Addr, c.Action)
		}
		if err := w.Flush(); err != nil {
			fatal(err)
		}
	},
}

func init() {
	Recon.AddCommand(planCommand)
}
