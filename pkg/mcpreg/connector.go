package mcpreg

import (
	"context"
	"encoding/json"
)

// Connector is one transport-level connection to one server target. The
// registry treats it as an opaque capability: Connect and Initialize are
// invoked once during CreateSession, SendMessage is reachable through the
// resulting Session, and Close is called exactly once when the session is
// torn down.
//
// Connect and Initialize must be called, in that order, before SendMessage.
type Connector interface {
	Connect(ctx context.Context) error
	Initialize(ctx context.Context) (*InitializeResult, error)
	SendMessage(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	Close() error
}

// InitializeResult carries the capabilities negotiated during the protocol
// handshake.
type InitializeResult struct {
	ProtocolVersion string
	ServerName      string
	ServerVersion   string
	Instructions    string
	Capabilities    map[string]any
}

// ConnectorFactory produces a Connector bound to one configuration's target
// and credentials. Implementations must not perform I/O at construction time;
// the registry invokes the factory once per successful connect cycle.
type ConnectorFactory interface {
	CreateConnector(cfg *ServerConfig) (Connector, error)
}

// ConnectorFactoryFunc adapts a function to the ConnectorFactory interface.
type ConnectorFactoryFunc func(cfg *ServerConfig) (Connector, error)

func (f ConnectorFactoryFunc) CreateConnector(cfg *ServerConfig) (Connector, error) {
	return f(cfg)
}
