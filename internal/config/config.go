package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	DownloadFolder string `envconfig:"DOWNLOAD_FOLDER" default:"downloads"`
	VideoQuality   string `envconfig:"VIDEO_QUALITY" default:"best"`
	OutputFormat   string `envconfig:"OUTPUT_FORMAT" default:"mp4"`

	// MaxParallel bounds concurrent download pipelines. 0 means unbounded.
	MaxParallel int `envconfig:"MAX_PARALLEL" default:"4"`

	YTDLPPath  string `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	FFmpegPath string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	DBPath     string `envconfig:"DB_PATH" default:"ytqueue.db"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"INFO"`
	WebhookURL string `envconfig:"WEBHOOK_URL"`

	Telemetry struct {
		Enabled        bool   `split_words:"true" default:"true"`
		ServiceName    string `split_words:"true" default:"ytqueue"`
		ServiceVersion string `split_words:"true" default:"dev"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:8090"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
