// Package mcpconn provides the default mcpreg.ConnectorFactory, backed by the
// modelcontextprotocol/go-sdk HTTP transports. Each connector dials one server
// over Streamable HTTP, falling back to SSE (or preferring SSE outright for
// endpoints that ask for it), and decorates every outbound request with the
// configured headers, the negotiated MCP session ID, and the configuration's
// bearer token.
package mcpconn
