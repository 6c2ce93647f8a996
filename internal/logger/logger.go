package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config is embedded into the command line with a "log-" prefix.
type Config struct {
	Level       string `name:"level" env:"POLYHOUSE_LOG_LEVEL" help:"Log level (debug, info, warn, error). Defaults to debug in dev, info elsewhere." validate:"oneof=debug info warn error"`
	Format      string `name:"format" env:"POLYHOUSE_LOG_FORMAT" help:"Log format (json, console). Defaults by environment." validate:"omitempty,oneof=json console"`
	Env         string `name:"env" env:"POLYHOUSE_ENV" default:"prod" help:"Deployment environment (dev, staging, prod)." validate:"oneof=dev staging prod"`
	ServiceName string `name:"service" env:"POLYHOUSE_SERVICE_NAME" default:"polyhouse" help:"Service name attached to every log line." validate:"required"`
	WithCaller  bool   `name:"caller" env:"POLYHOUSE_LOG_CALLER" help:"Attach caller file:line to log lines."`
}

// New builds a logger writing to stderr.
func New(cfg *Config) (zerolog.Logger, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter builds a logger writing to w. The global level is set from
// the config, so only one logger per process should be built this way.
func NewWithWriter(cfg *Config, w io.Writer) (zerolog.Logger, error) {
	cfg.setDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return zerolog.Nop(), fmt.Errorf("logger config validation error: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.SetGlobalLevel(level)

	out := w
	if cfg.Format == "console" {
		// humans read these, keep timestamps short
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Env).
		Logger()

	if cfg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	return logger, nil
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}
	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}
	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}
	if c.ServiceName == "" {
		c.ServiceName = "polyhouse"
	}
	if c.Env == "dev" {
		c.WithCaller = true
	}
}
