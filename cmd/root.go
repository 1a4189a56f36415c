package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "favorpay",
	Short: "FavorApp payment client",
	Long:  "Client for the FavorApp API: card setup, escrow actions, notifications and the local bridge.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
