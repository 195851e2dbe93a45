package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reqbridge",
	Short: "API request workbench server and client",
	Long: `reqbridge runs the request workbench backend: user accounts, saved
requests and favorites, environments, and an authenticated HTTP proxy.

Examples:
  reqbridge serve
  reqbridge send get https://api.example.com/users
  reqbridge reset-password -u admin`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
