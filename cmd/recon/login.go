package cmd

import (
	"fmt"
	"os"

	"github.com/recon/recon/auth"
	"github.com/spf13/cobra"
)

var loginCommand = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer credential for the remote endpoint",
	Run: func(cmd *cobra.Command, args []string) {
		endpoint, err := cmd.Flags().GetString("endpoint")
		if err != nil {
			fatal(err)
		}
		token, err := cmd.Flags().GetString("token")
		if err != nil {
			fatal(err)
		}
		if token == "" {
			fmt.Fprintln(os.Stderr, "A token is required: recon login --token <token>")
			os.Exit(2)
		}

		dir, err := auth.DefaultDir()
		if err != nil {
			fatal(err)
		}
		if err := auth.New(endpoint, token).Persist(dir); err != nil {
			fatal(err)
		}
		fmt.Printf("Credentials stored for %s\n", endpoint)
	},
}

func init() {
	loginCommand.Flags().String("token", "", "Bearer token for the endpoint")
	Recon.AddCommand(loginCommand)
}
