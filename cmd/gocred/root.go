package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gocred CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gocred",
		Short: "goCred - password and one-time-code authentication",
		Long: `gocred serves the goCred authentication API over HTTP and bundles
operator tools for hashing passwords and load testing a store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewLoadtestCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gocred %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
