// mcpregd serves the registry administration API, optionally pre-loading
// server configurations from an "mcpServers" document (JSON or YAML).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpconn"
	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
	"github.com/mcp-use/mcp-registry-go/pkg/regapi"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath     string
		addr           string
		path           string
		connectTimeout time.Duration
		jsonLogs       bool
	)

	cmd := &cobra.Command{
		Use:           "mcpregd",
		Short:         "Serve the MCP server registry administration API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(jsonLogs)

			registry := mcpreg.New(&mcpconn.Factory{}, &mcpreg.Options{
				ConnectTimeout: connectTimeout,
				Logger:         logger,
			})

			if configPath != "" {
				doc, err := mcpreg.LoadServersFile(configPath)
				if err != nil {
					return err
				}
				if err := registry.AddServers(doc); err != nil {
					return err
				}
				logger.Info("loaded server configurations", "file", configPath, "servers", len(registry.GetServerNames()))
			}

			service, err := regapi.NewService(registry, &regapi.Options{
				Addr:   addr,
				Path:   path,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("serving registry API", "addr", addr, "path", path)
			err = service.ListenAndServe(ctx)

			if cerr := registry.CloseAllSessions(); cerr != nil {
				logger.Warn("closing sessions on shutdown", "error", cerr)
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to an mcpServers document (JSON or YAML)")
	cmd.Flags().StringVar(&addr, "addr", ":8701", "listen address")
	cmd.Flags().StringVar(&path, "path", "/api", "HTTP mount prefix")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 30*time.Second, "default connect+initialize bound")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON log lines")
	return cmd
}

func newLogger(jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
