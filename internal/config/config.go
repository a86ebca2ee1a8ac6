package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lucasew/cachequota/internal/eviction/policy/maxsize"
	"github.com/spf13/viper"
)

// Config holds every setting of the server and the local commands.
//
// Keys match the CLI flag names. Sources, highest priority first: flags,
// CACHEQUOTA_* environment variables, the optional config file, defaults.
type Config struct {
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	BaseDir  string `mapstructure:"base-dir" validate:"required"`
	LogLevel string `mapstructure:"log-level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	// LogFormat selects the slog handler.
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`

	// DefaultMB is the quota used when a request omits mb, and by sweeps.
	DefaultMB    float64 `mapstructure:"default-mb" validate:"gte=0"`
	MinFreeSpace int64   `mapstructure:"min-free-space" validate:"gte=0"`
	Rescan       bool    `mapstructure:"rescan"`

	// JournalPath enables the sqlite eviction journal when set.
	JournalPath string `mapstructure:"journal-path"`

	// Metrics serves Prometheus metrics on /metrics.
	Metrics bool `mapstructure:"metrics"`

	SweepInterval    time.Duration `mapstructure:"sweep-interval" validate:"gte=0"`
	SweepConcurrency int           `mapstructure:"sweep-concurrency" validate:"min=1"`
}

var validate = validator.New()

// SetDefaults registers the default of every key on v, so commands that do
// not bind a flag still load a valid Config.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("base-dir", "/tmp")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("default-mb", maxsize.DefaultMB)
	v.SetDefault("sweep-concurrency", 4)
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks struct tags and reports the first failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// Logger builds the slog logger described by cfg.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
