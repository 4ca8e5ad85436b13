package config

import (
	"errors"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	App         App
	Server      Server
	Store       Store
	Capture     Capture
	Chunking    Chunking
	Upload      Upload
	MinIOBucket string
	Queue       *RabbitMQ     // nil when analytics queue is not configured
	Storage     *minio.Client // nil unless the object-store upload backend is enabled
}

type App struct {
	Environment string
	Host        string
}

type Server struct {
	HttpPort string
}

type Store struct {
	Driver string // file, sqlite or postgres
	Path   string // file store location
	DSN    string // sqlite path or postgres connection string
}

type Capture struct {
	Input      string // PCM input path, "-" for stdin
	SpoolDir   string
	SampleRate int
	Channels   int
}

type Chunking struct {
	Policy           string // interval or silence
	Interval         time.Duration
	CheckInterval    time.Duration
	SilenceThreshold float64
	SilenceWindow    time.Duration
	MinChunkLength   time.Duration
}

type Upload struct {
	Backend       string // http or minio
	Endpoint      string
	Credentials   string
	Timeout       time.Duration
	SweepInterval time.Duration
}

type RabbitMQ struct {
	Host         string
	Port         int
	User         string
	Pass         string
	ExchangeName string
	Kind         string
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("store.driver", "file")
	viper.SetDefault("store.path", "data/recordings.json")
	viper.SetDefault("capture.input", "-")
	viper.SetDefault("capture.spool_dir", "data/chunks")
	viper.SetDefault("capture.sample_rate", 16000)
	viper.SetDefault("capture.channels", 1)
	viper.SetDefault("chunking.policy", "interval")
	viper.SetDefault("chunking.interval", "2m")
	viper.SetDefault("chunking.check_interval", "1s")
	viper.SetDefault("chunking.silence_threshold", 0.02)
	viper.SetDefault("chunking.silence_window", "3s")
	viper.SetDefault("chunking.min_chunk_length", "15s")
	viper.SetDefault("upload.backend", "http")
	viper.SetDefault("upload.timeout", "45s")
	viper.SetDefault("upload.sweep_interval", "30s")
	viper.SetDefault("rabbitmq.kind", "topic")
	viper.SetDefault("rabbitmq.exchange_name", "scribe_events_exchange")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, the defaults describe a runnable
		// local setup (file store, stdin capture).
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		Store: Store{
			Driver: viper.GetString("store.driver"),
			Path:   viper.GetString("store.path"),
			DSN:    viper.GetString("store.dsn"),
		},
		Capture: Capture{
			Input:      viper.GetString("capture.input"),
			SpoolDir:   viper.GetString("capture.spool_dir"),
			SampleRate: viper.GetInt("capture.sample_rate"),
			Channels:   viper.GetInt("capture.channels"),
		},
		Chunking: Chunking{
			Policy:           viper.GetString("chunking.policy"),
			Interval:         viper.GetDuration("chunking.interval"),
			CheckInterval:    viper.GetDuration("chunking.check_interval"),
			SilenceThreshold: viper.GetFloat64("chunking.silence_threshold"),
			SilenceWindow:    viper.GetDuration("chunking.silence_window"),
			MinChunkLength:   viper.GetDuration("chunking.min_chunk_length"),
		},
		Upload: Upload{
			Backend:       viper.GetString("upload.backend"),
			Endpoint:      viper.GetString("upload.endpoint"),
			Credentials:   viper.GetString("upload.credentials"),
			Timeout:       viper.GetDuration("upload.timeout"),
			SweepInterval: viper.GetDuration("upload.sweep_interval"),
		},
		MinIOBucket: viper.GetString("minio.bucket"),
	}

	if viper.GetString("rabbitmq.host") != "" {
		cfg.Queue = &RabbitMQ{
			Host:         viper.GetString("rabbitmq.host"),
			Port:         viper.GetInt("rabbitmq.port"),
			User:         viper.GetString("rabbitmq.user"),
			Pass:         viper.GetString("rabbitmq.pass"),
			ExchangeName: viper.GetString("rabbitmq.exchange_name"),
			Kind:         viper.GetString("rabbitmq.kind"),
		}
	}

	if cfg.Upload.Backend == "minio" {
		minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
			Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
			Secure: viper.GetBool("minio.secure"),
		})
		if err != nil {
			return nil, err
		}
		cfg.Storage = minioClient
	}

	return cfg, nil
}
