package cmd

import (
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/resonately/resonately-scribe-sub000/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func reset(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "wipe all persisted recording state (debug only)",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := server.SetupLogger(cfg)

			store, err := repository.NewStore(cfg.Store)
			if err != nil {
				zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open recording store")
			}
			if err := store.Clear(cmd.Context()); err != nil {
				zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to clear recording store")
			}
			zerolog.Ctx(ctx).Info().Msg("recording store cleared")
		},
	}
}
