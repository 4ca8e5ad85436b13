package cmd

import (
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/spf13/cobra"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(daemon(config))
	rootCmd.AddCommand(sweep(config))
	rootCmd.AddCommand(reset(config))
	return rootCmd
}
