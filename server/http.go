package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/resonately/resonately-scribe-sub000/config"
	"github.com/resonately/resonately-scribe-sub000/constant"
	"github.com/resonately/resonately-scribe-sub000/handler"
	"github.com/resonately/resonately-scribe-sub000/pkg/analytics"
	"github.com/resonately/resonately-scribe-sub000/pkg/capture"
	"github.com/resonately/resonately-scribe-sub000/pkg/chunking"
	"github.com/resonately/resonately-scribe-sub000/pkg/rabbitmq"
	"github.com/resonately/resonately-scribe-sub000/repository"
	"github.com/resonately/resonately-scribe-sub000/service"
	"github.com/rs/zerolog"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(SetupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := repository.NewStore(cfg.Store)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open recording store")
	}
	mirror := repository.NewMirror(store)

	sink := NewSink(ctx, cfg)
	uploader := NewUploader(cfg)

	worker := service.NewUploadWorker(mirror, uploader, sink, cfg.Upload.Timeout, cfg.Upload.SweepInterval)
	go worker.Run(ctx)

	frameSize := capture.FrameSize(cfg.Capture.SampleRate, cfg.Capture.Channels, 20)
	source, err := capture.OpenStreamSource(cfg.Capture.Input, frameSize)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open capture input")
	}

	policy := NewPolicy(cfg.Chunking)
	driver := capture.NewPCMDriver(source, cfg.Capture.SpoolDir, cfg.Capture.SampleRate, cfg.Capture.Channels,
		capture.WithFrameTap(func(frame []byte) {
			policy.Observe(frame, time.Now())
		}),
	)
	controller := service.NewSessionController(mirror, driver, policy, sink,
		service.WithCheckInterval(cfg.Chunking.CheckInterval),
	)

	r := gin.Default()
	addHealth(r)
	handler.Register(r, handler.Dependencies{
		Controller: controller,
		Worker:     worker,
		Mirror:     mirror,
		BaseCtx:    ctx,
	})

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")

	shutdownCtx := context.WithoutCancel(ctx)
	// An active recording is finalized before exit so its chunks survive the
	// restart; uploads resume from the persisted store on next sweep.
	if _, ok := controller.ActiveRecordingID(); ok {
		if err := controller.StopRecording(shutdownCtx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to stop active recording on shutdown")
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// NewSink prefers the analytics queue when one is configured; a missing or
// unreachable broker degrades to the log sink rather than failing startup.
func NewSink(ctx context.Context, cfg *config.Config) analytics.Sink {
	if cfg.Queue == nil {
		return analytics.NewLogSink()
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("analytics queue unreachable, falling back to log sink")
		return analytics.NewLogSink()
	}
	publisher, err := rabbitmq.NewPublisher(ctx, conn, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to open analytics publisher, falling back to log sink")
		return analytics.NewLogSink()
	}
	return analytics.NewQueueSink(publisher)
}

func NewUploader(cfg *config.Config) service.ChunkUploader {
	if cfg.Upload.Backend == "minio" {
		return service.NewObjectUploader(cfg.Storage, cfg.MinIOBucket)
	}
	return service.NewHTTPUploader(cfg.Upload)
}

func NewPolicy(cfg config.Chunking) chunking.Policy {
	if cfg.Policy == "silence" {
		return chunking.NewSilencePolicy(cfg.SilenceThreshold, cfg.SilenceWindow, cfg.MinChunkLength)
	}
	return chunking.NewIntervalPolicy(cfg.Interval)
}

func SetupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
