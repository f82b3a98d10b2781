package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var destroyCommand = &cobra.Command{
	Use:   "destroy [dir]",
	Short: "Delete all resources the project has created",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cli, err := newClient(cmd)
		if err != nil {
			fatal(err)
		}

		root := findRoot(cli, args)

		yes, err := cmd.Flags().GetBool("yes")
		if err != nil {
			fatal(err)
		}
		if !yes && !confirm(fmt.Sprintf("Delete all resources in %s?", root)) {
			fmt.Println("Cancelled.")
			return
		}

		ctx := signalContext(context.Background())

		if err := cli.Destroy(ctx, root); err != nil {
			fatal(err)
		}
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	destroyCommand.Flags().Bool("yes", false, "Skip confirmation")
	Recon.AddCommand(destroyCommand)
}
