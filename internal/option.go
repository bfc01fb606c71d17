package internal

import (
	"io"
	"log/slog"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	logger *slog.Logger
	logOut io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the JSON logger the application would build from
// config.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithLogOutput sets where the JSON logger writes. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

func newApplication(opts []Option) *application {
	a := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
