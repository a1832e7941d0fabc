package mcpconn

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcp-use/mcp-registry-go/pkg/mcpreg"
)

// Factory builds HTTPConnector instances for the registry. The zero value is
// usable; fields tune every connector the factory produces.
type Factory struct {
	// HTTPClient is the base client cloned and decorated per connector.
	// Defaults to http.DefaultClient.
	HTTPClient *http.Client
	// MaxRetries is passed to the Streamable HTTP transport.
	MaxRetries int
	// Implementation identifies this client during the MCP handshake.
	Implementation *mcp.Implementation
}

// CreateConnector returns a connector bound to cfg's target and credentials.
// No I/O happens until the registry calls Connect.
func (f *Factory) CreateConnector(cfg *mcpreg.ServerConfig) (mcpreg.Connector, error) {
	return newHTTPConnector(f, cfg), nil
}
