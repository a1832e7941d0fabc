package mcpreg

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Session is the live counterpart of a registered configuration: exactly one
// connected, initialized Connector plus the handshake result. Sessions are
// created only by the registry and are never shared between identifiers.
// Callers may send protocol messages through a Session, but only the registry
// closes or replaces one.
type Session struct {
	id         string
	serverName string
	connector  Connector
	initResult *InitializeResult
}

func newSession(serverName string, connector Connector, initResult *InitializeResult) *Session {
	return &Session{
		id:         uuid.NewString(),
		serverName: serverName,
		connector:  connector,
		initResult: initResult,
	}
}

// ID returns the unique instance identifier of this session, useful for
// correlating diagnostics across reconnects of the same server name.
func (s *Session) ID() string { return s.id }

// ServerName returns the registry identifier this session belongs to.
func (s *Session) ServerName() string { return s.serverName }

// InitializeResult returns the capabilities negotiated when the session was
// established.
func (s *Session) InitializeResult() *InitializeResult { return s.initResult }

// Connector exposes the underlying transport connection for advanced callers.
func (s *Session) Connector() Connector { return s.connector }

// SendMessage routes a protocol request through the session's connector.
func (s *Session) SendMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return s.connector.SendMessage(ctx, payload)
}

func (s *Session) close() error { return s.connector.Close() }
