// Package regapi exposes an HTTP-facing administration surface over an
// mcpreg.Registry so UIs and CLI tooling can register servers, establish and
// tear down sessions, and inspect configurations without linking the library
// directly. Responses are JSON; the registry's error taxonomy maps onto HTTP
// status codes.
package regapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
)

// Service serves the registry administration API.
type Service struct {
	registry *mcpreg.Registry
	opts     Options

	mux     *http.ServeMux
	handler http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewService builds a Service around the given registry.
func NewService(registry *mcpreg.Registry, opts *Options) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("regapi: registry is required")
	}
	s := &Service{
		registry: registry,
		opts:     opts.withDefaults(),
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	s.handler = cors.New(*s.opts.CORS).Handler(s.mux)
	return s, nil
}

// Handler exposes the CORS-wrapped HTTP handler.
func (s *Service) Handler() http.Handler { return s.handler }

// ServeMux exposes the underlying mux so consumers can mount custom routes
// next to the API.
func (s *Service) ServeMux() *http.ServeMux { return s.mux }

// Options returns the effective (defaulted) options.
func (s *Service) Options() Options { return s.opts }

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (s *Service) ListenAndServe(ctx context.Context) error {
	s.httpServerMu.Lock()
	if s.httpServer != nil {
		srv := s.httpServer
		s.httpServerMu.Unlock()
		return fmt.Errorf("regapi: server already running on %s", srv.Addr)
	}
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}
	s.httpServer = srv
	s.httpServerMu.Unlock()
	defer func() {
		s.httpServerMu.Lock()
		if s.httpServer == srv {
			s.httpServer = nil
		}
		s.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (s *Service) Shutdown(ctx context.Context) error {
	s.httpServerMu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (s *Service) registerRoutes() {
	prefix := strings.TrimSuffix(s.opts.Path, "/")
	s.mux.HandleFunc("GET "+prefix+"/servers", s.handleListServers)
	s.mux.HandleFunc("POST "+prefix+"/servers/import", s.handleImport)
	s.mux.HandleFunc("POST "+prefix+"/servers/{name}", s.handleAddServer)
	s.mux.HandleFunc("DELETE "+prefix+"/servers/{name}", s.handleRemoveServer)
	s.mux.HandleFunc("GET "+prefix+"/servers/{name}/config", s.handleGetConfig)
	s.mux.HandleFunc("POST "+prefix+"/servers/{name}/connect", s.handleConnect)
	s.mux.HandleFunc("POST "+prefix+"/servers/{name}/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("POST "+prefix+"/sessions/close", s.handleCloseAll)
}

type serverSummary struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Connected bool   `json:"connected"`
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Service) handleListServers(w http.ResponseWriter, r *http.Request) {
	names := s.registry.GetServerNames()
	summaries := make([]serverSummary, 0, len(names))
	for _, name := range names {
		summary := serverSummary{Name: name}
		if cfg, err := s.registry.GetServerConfig(name); err == nil {
			summary.URL = cfg.URL
		}
		if session, err := s.registry.GetSession(name); err == nil {
			summary.Connected = true
			summary.SessionID = session.ID()
		}
		summaries = append(summaries, summary)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"servers": summaries})
}

func (s *Service) handleAddServer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var cfg mcpreg.ServerConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, r, &mcpreg.ValidationError{Field: "config", Reason: err.Error()})
		return
	}
	if err := s.registry.AddServer(name, &cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"name": name})
}

func (s *Service) handleRemoveServer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	err := s.registry.RemoveServer(name)
	var cerr *mcpreg.CloseError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.As(err, &cerr):
		// The entry is gone; the teardown failure is informational.
		s.opts.Logger.Warn("session close failed during removal", "server", name, "error", cerr)
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, r, err)
	}
}

func (s *Service) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.registry.GetServerConfig(r.PathValue("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *Service) handleConnect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	timeout, err := connectTimeout(r)
	if err != nil {
		s.writeError(w, r, &mcpreg.ValidationError{Field: "timeout", Reason: err.Error()})
		return
	}
	session, err := s.registry.CreateSessionWithTimeout(r.Context(), name, timeout)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body := map[string]any{
		"sessionId": session.ID(),
		"server":    session.ServerName(),
	}
	if init := session.InitializeResult(); init != nil {
		body["protocolVersion"] = init.ProtocolVersion
		body["capabilities"] = init.Capabilities
	}
	s.writeJSON(w, http.StatusOK, body)
}

func connectTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func (s *Service) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	err := s.registry.CloseSession(name)
	var cerr *mcpreg.CloseError
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.As(err, &cerr):
		s.opts.Logger.Warn("session close failed", "server", name, "error", cerr)
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, r, err)
	}
}

func (s *Service) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc mcpreg.ServersDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		s.writeError(w, r, &mcpreg.ValidationError{Field: "document", Reason: err.Error()})
		return
	}
	if err := s.registry.AddServers(&doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"servers": s.registry.GetServerNames()})
}

func (s *Service) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"closed": true}
	if err := s.registry.CloseAllSessions(); err != nil {
		s.opts.Logger.Warn("close all sessions reported failures", "error", err)
		body["errors"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.opts.Logger.Error("encoding response", "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var (
		verr *mcpreg.ValidationError
		nerr *mcpreg.NotFoundError
		conn *mcpreg.ConnectionError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nerr):
		status = http.StatusNotFound
	case errors.As(err, &conn):
		status = http.StatusBadGateway
		if conn.Kind == mcpreg.ConnectionTimeout {
			status = http.StatusGatewayTimeout
		}
	}
	if status >= http.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}
