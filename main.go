package main

import (
	"fmt"
	"os"

	cmd "github.com/recon/recon/cmd/recon"
)

func main() {
	err := cmd.Recon.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
