package mcpconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
)

const sessionIDHeaderName = "Mcp-Session-Id"

// HTTPConnector is one transport-level connection to one MCP server target.
// It implements mcpreg.Connector: the registry drives Connect, Initialize,
// and Close; callers reach SendMessage through the session the registry hands
// back.
type HTTPConnector struct {
	cfg        *mcpreg.ServerConfig
	impl       *mcp.Implementation
	base       *http.Client
	maxRetries int
	tracker    *sessionIDTracker

	mu      sync.Mutex
	session *mcp.ClientSession
}

func newHTTPConnector(f *Factory, cfg *mcpreg.ServerConfig) *HTTPConnector {
	impl := f.Implementation
	if impl == nil {
		impl = &mcp.Implementation{Name: "mcp-registry", Version: "1.0.0"}
	}
	return &HTTPConnector{
		cfg:        cfg,
		impl:       impl,
		base:       f.HTTPClient,
		maxRetries: f.MaxRetries,
		tracker:    &sessionIDTracker{},
	}
}

// Connect dials the configured endpoint. Streamable HTTP is attempted first
// unless the configuration prefers SSE (explicitly, or through the /sse URL
// suffix), in which case only SSE is tried. The go-sdk completes the MCP
// initialize handshake as part of connecting.
func (c *HTTPConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}

	client := decorateHTTPClient(c.base, configHeaders(c.cfg), c.tracker, authorizationValue(c.cfg.AuthToken))
	streamable := &mcp.StreamableClientTransport{
		Endpoint:   c.cfg.URL,
		HTTPClient: client,
		MaxRetries: c.maxRetries,
	}
	sse := &mcp.SSEClientTransport{Endpoint: c.cfg.URL, HTTPClient: client}

	var streamErr error
	if !c.preferSSE() {
		session, err := mcp.NewClient(c.impl, nil).Connect(ctx, streamable, nil)
		if err == nil {
			c.adopt(session)
			return nil
		}
		streamErr = err
	}
	session, err := mcp.NewClient(c.impl, nil).Connect(ctx, sse, nil)
	if err != nil {
		if streamErr != nil {
			return fmt.Errorf("streamable error: %v; sse error: %w", streamErr, err)
		}
		return err
	}
	c.adopt(session)
	return nil
}

func (c *HTTPConnector) adopt(session *mcp.ClientSession) {
	c.tracker.Set(session.ID())
	c.session = session
}

func (c *HTTPConnector) preferSSE() bool {
	switch c.cfg.Transport {
	case mcpreg.TransportSSE:
		return true
	case mcpreg.TransportStreamableHTTP:
		return false
	}
	return strings.HasSuffix(strings.TrimSpace(c.cfg.URL), "/sse")
}

// Initialize surfaces the capabilities negotiated during Connect.
func (c *HTTPConnector) Initialize(context.Context) (*mcpreg.InitializeResult, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, errors.New("mcpconn: not connected")
	}
	res := session.InitializeResult()
	if res == nil {
		return nil, errors.New("mcpconn: server returned no initialize result")
	}
	out := &mcpreg.InitializeResult{
		ProtocolVersion: res.ProtocolVersion,
		Instructions:    res.Instructions,
	}
	if res.ServerInfo != nil {
		out.ServerName = res.ServerInfo.Name
		out.ServerVersion = res.ServerInfo.Version
	}
	if res.Capabilities != nil {
		caps, err := capabilityMap(res.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("mcpconn: decoding capabilities: %w", err)
		}
		out.Capabilities = caps
	}
	return out, nil
}

// messageEnvelope is the request shape accepted by SendMessage.
type messageEnvelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SendMessage dispatches a protocol request over the live session. Supported
// methods: ping, tools/list, and tools/call.
func (c *HTTPConnector) SendMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return nil, errors.New("mcpconn: not connected")
	}

	var envelope messageEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("mcpconn: decoding message: %w", err)
	}

	switch envelope.Method {
	case "ping":
		if err := session.Ping(ctx, nil); err != nil {
			return nil, err
		}
		return json.RawMessage(`{}`), nil
	case "tools/list":
		res, err := session.ListTools(ctx, nil)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	case "tools/call":
		var params mcp.CallToolParams
		if len(envelope.Params) > 0 {
			if err := json.Unmarshal(envelope.Params, &params); err != nil {
				return nil, fmt.Errorf("mcpconn: decoding tools/call params: %w", err)
			}
		}
		if params.Name == "" {
			return nil, errors.New("mcpconn: tools/call requires a tool name")
		}
		res, err := session.CallTool(ctx, &params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	default:
		return nil, fmt.Errorf("mcpconn: unsupported method %q", envelope.Method)
	}
}

// Close tears the session down. It is safe to call on a connector that never
// connected.
func (c *HTTPConnector) Close() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}

func capabilityMap(capabilities any) (map[string]any, error) {
	encoded, err := json.Marshal(capabilities)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func configHeaders(cfg *mcpreg.ServerConfig) http.Header {
	if len(cfg.Headers) == 0 {
		return nil
	}
	headers := make(http.Header, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers.Set(key, value)
	}
	return headers
}

// authorizationValue normalizes a configured token into an Authorization
// header value, defaulting to the Bearer scheme when none is given.
func authorizationValue(token string) string {
	if token == "" {
		return ""
	}
	if strings.Contains(token, " ") {
		return token
	}
	return "Bearer " + token
}

type sessionIDTracker struct {
	mu    sync.RWMutex
	value string
}

func (s *sessionIDTracker) Set(value string) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

func (s *sessionIDTracker) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func decorateHTTPClient(base *http.Client, headers http.Header, tracker *sessionIDTracker, authorization string) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	clone := *base
	clone.Transport = &headerDecorator{
		next:          defaultRoundTripper(base.Transport),
		headers:       headers,
		tracker:       tracker,
		authorization: authorization,
	}
	return &clone
}

type headerDecorator struct {
	next          http.RoundTripper
	headers       http.Header
	tracker       *sessionIDTracker
	authorization string
}

func (d *headerDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for key, values := range d.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if d.tracker != nil {
		if sessionID := d.tracker.Value(); sessionID != "" {
			req.Header.Set(sessionIDHeaderName, sessionID)
		}
	}
	if d.authorization != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", d.authorization)
	}
	return d.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}
