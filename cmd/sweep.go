package cmd

import (
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/resonately/resonately-scribe-sub000/server"
	"github.com/resonately/resonately-scribe-sub000/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// sweep is the background-execution entry point: the platform scheduler
// invokes it with cold in-memory state, so everything is rebuilt from the
// durable store before uploading.
func sweep(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "run one upload sweep over all pending chunks and exit",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := server.SetupLogger(cfg)

			store, err := repository.NewStore(cfg.Store)
			if err != nil {
				zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open recording store")
			}
			mirror := repository.NewMirror(store)

			worker := service.NewUploadWorker(mirror, server.NewUploader(cfg), server.NewSink(ctx, cfg), cfg.Upload.Timeout, cfg.Upload.SweepInterval)
			worker.TriggerSweep(ctx)
		},
	}
}
