package cmd

import (
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/resonately/resonately-scribe-sub000/server"
	"github.com/spf13/cobra"
)

func daemon(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "run the capture-and-upload pipeline with its http control surface",
		Run: func(cmd *cobra.Command, args []string) {
			server.RunHttp(config)
		},
	}
}
