// Package mcpreg implements a client-side registry of named MCP server
// configurations and the sessions established against them. Callers register
// server configurations under identifiers of their choosing, connect and tear
// down sessions by identifier, and look configurations or live sessions back
// up later. The identifier is a pure alias: it carries no relationship to the
// server URL, so the same endpoint may be registered any number of times under
// different names, each with its own credentials, headers, or transport
// options.
//
// # Core entry points
//
//   - Registry owns the identifier-to-configuration and identifier-to-session
//     mappings. Construct it with New, passing the ConnectorFactory that turns
//     configurations into live transport connections.
//   - ServerConfig declares how one server is reached and authenticated. The
//     URL is the only interpreted field; auxiliary fields ride along opaquely
//     and are handed to the factory untouched.
//   - Session wraps a connected, initialized Connector together with the
//     capabilities negotiated during the handshake.
//
// Register configurations with AddServer (or in bulk with AddServers from an
// "mcpServers" document), then call CreateSession to connect. CreateSession is
// idempotent for an already-connected identifier; reconnecting requires an
// explicit CloseSession first. RemoveServer forgets the configuration and
// closes any session bound to it; CloseAllSessions tears down every live
// connection and aggregates per-identifier close failures.
//
// The Registry never closes a session it does not own and never shares a
// session between identifiers, even when two identifiers carry structurally
// identical configurations.
package mcpreg
