package regapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
)

// Options configure a Service instance.
type Options struct {
	// Addr controls the listen address used by ListenAndServe. Defaults to ":8701".
	Addr string
	// Path mounts the API under a specific HTTP prefix. Defaults to "/api".
	Path string
	// CORS customizes cross-origin handling for browser-based UIs. When nil,
	// a permissive policy covering the API's methods is applied.
	CORS *cors.Options
	// Logger receives structured diagnostics.
	Logger *slog.Logger
	// ShutdownTimeout bounds graceful shutdown when ListenAndServe's context
	// is cancelled.
	ShutdownTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Addr == "" {
		opts.Addr = ":8701"
	}
	if opts.Path == "" {
		opts.Path = "/api"
	}
	if opts.CORS == nil {
		opts.CORS = &cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"*"},
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return opts
}
