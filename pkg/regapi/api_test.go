package regapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
)

type stubConnector struct {
	connectErr   error
	blockConnect bool
}

func (c *stubConnector) Connect(ctx context.Context) error {
	if c.blockConnect {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.connectErr
}

func (c *stubConnector) Initialize(context.Context) (*mcpreg.InitializeResult, error) {
	return &mcpreg.InitializeResult{ProtocolVersion: "2025-03-26"}, nil
}

func (c *stubConnector) SendMessage(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return payload, nil
}

func (c *stubConnector) Close() error { return nil }

func testService(t *testing.T, connector *stubConnector) (*Service, *mcpreg.Registry) {
	t.Helper()
	factory := mcpreg.ConnectorFactoryFunc(func(*mcpreg.ServerConfig) (mcpreg.Connector, error) {
		if connector == nil {
			return &stubConnector{}, nil
		}
		return connector, nil
	})
	registry := mcpreg.New(factory, &mcpreg.Options{
		ConnectTimeout: time.Second,
		CloseTimeout:   100 * time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	service, err := NewService(registry, &Options{
		Path:   "/api",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return service, registry
}

func TestServerLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	service, _ := testService(t, nil)
	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	// Register.
	res, err := http.Post(srv.URL+"/api/servers/primary", "application/json",
		bytes.NewReader([]byte(`{"url":"http://api.example.com","auth":"tok"}`)))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// List.
	res, err = http.Get(srv.URL + "/api/servers")
	require.NoError(t, err)
	var listing struct {
		Servers []struct {
			Name      string `json:"name"`
			URL       string `json:"url"`
			Connected bool   `json:"connected"`
		} `json:"servers"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&listing))
	res.Body.Close()
	require.Len(t, listing.Servers, 1)
	assert.Equal(t, "primary", listing.Servers[0].Name)
	assert.Equal(t, "http://api.example.com", listing.Servers[0].URL)
	assert.False(t, listing.Servers[0].Connected)

	// Connect.
	res, err = http.Post(srv.URL+"/api/servers/primary/connect", "application/json", nil)
	require.NoError(t, err)
	var connected struct {
		SessionID       string `json:"sessionId"`
		ProtocolVersion string `json:"protocolVersion"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&connected))
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, connected.SessionID)
	assert.Equal(t, "2025-03-26", connected.ProtocolVersion)

	// Disconnect keeps the config.
	res, err = http.Post(srv.URL+"/api/servers/primary/disconnect", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/servers/primary/config")
	require.NoError(t, err)
	var cfg mcpreg.ServerConfig
	require.NoError(t, json.NewDecoder(res.Body).Decode(&cfg))
	res.Body.Close()
	assert.Equal(t, "http://api.example.com", cfg.URL)

	// Remove, then the same removal 404s.
	deleteServer := func() int {
		req, reqErr := http.NewRequest(http.MethodDelete, srv.URL+"/api/servers/primary", nil)
		require.NoError(t, reqErr)
		delRes, doErr := http.DefaultClient.Do(req)
		require.NoError(t, doErr)
		delRes.Body.Close()
		return delRes.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, deleteServer())
	assert.Equal(t, http.StatusNotFound, deleteServer())
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	service, registry := testService(t, &stubConnector{connectErr: errors.New("refused")})
	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	// Validation: missing url.
	res, err := http.Post(srv.URL+"/api/servers/bad", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// NotFound: connect against an unregistered name.
	res, err = http.Post(srv.URL+"/api/servers/ghost/connect", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// ConnectionError maps to 502.
	require.NoError(t, registry.AddServer("flaky", &mcpreg.ServerConfig{URL: "http://flaky.example.com"}))
	res, err = http.Post(srv.URL+"/api/servers/flaky/connect", "application/json", nil)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Contains(t, body["error"], "refused")
}

func TestConnectTimeoutMapsToGatewayTimeout(t *testing.T) {
	t.Parallel()

	service, registry := testService(t, &stubConnector{blockConnect: true})
	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	require.NoError(t, registry.AddServer("slow", &mcpreg.ServerConfig{URL: "http://slow.example.com"}))

	res, err := http.Post(srv.URL+"/api/servers/slow/connect?timeout=50ms", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusGatewayTimeout, res.StatusCode)
}

func TestBulkImportPreservesDuplicateURLs(t *testing.T) {
	t.Parallel()

	service, registry := testService(t, nil)
	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	doc := `{"mcpServers":{
		"production": {"url": "http://api.example.com"},
		"staging":    {"url": "http://api.example.com"},
		"backup":     {"url": "http://api.example.com"}
	}}`
	res, err := http.Post(srv.URL+"/api/servers/import", "application/json", bytes.NewReader([]byte(doc)))
	require.NoError(t, err)
	var body struct {
		Servers []string `json:"servers"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, []string{"backup", "production", "staging"}, body.Servers)

	for _, name := range body.Servers {
		cfg, cfgErr := registry.GetServerConfig(name)
		require.NoError(t, cfgErr)
		assert.Equal(t, "http://api.example.com", cfg.URL)
	}
}

func TestServeMuxAllowsCustomRoutes(t *testing.T) {
	t.Parallel()

	service, _ := testService(t, nil)
	service.ServeMux().HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestCloseAllSessionsEndpoint(t *testing.T) {
	t.Parallel()

	service, registry := testService(t, nil)
	srv := httptest.NewServer(service.Handler())
	defer srv.Close()

	require.NoError(t, registry.AddServer("a", &mcpreg.ServerConfig{URL: "http://a.example.com"}))
	_, err := registry.CreateSession(context.Background(), "a")
	require.NoError(t, err)

	res, err := http.Post(srv.URL+"/api/sessions/close", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	_, err = registry.GetSession("a")
	assert.True(t, mcpreg.IsNotFound(err))
	assert.True(t, registry.HasServer("a"))
}
