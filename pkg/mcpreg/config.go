package mcpreg

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"

	"gopkg.in/yaml.v3"
)

// TransportKind selects the transport family used to reach a server. An empty
// value lets the connector pick (typically by inspecting the URL).
type TransportKind string

const (
	TransportStreamableHTTP TransportKind = "http"
	TransportSSE            TransportKind = "sse"
)

// ServerConfig declares how to reach and authenticate to one server target.
// URL is the only field the registry interprets (it must be non-empty at
// AddServer time); everything else is carried opaquely to the connector
// factory. Unknown keys encountered while decoding are preserved in Extra so
// transport-specific settings survive a round trip.
//
// Two ServerConfig values with identical fields are first-class distinct
// registrations when stored under different identifiers.
type ServerConfig struct {
	URL       string
	AuthToken string
	Headers   map[string]string
	Transport TransportKind
	Extra     map[string]any
}

func (c *ServerConfig) validate() error {
	if c == nil {
		return &ValidationError{Field: "config", Reason: "must not be nil"}
	}
	if c.URL == "" {
		return &ValidationError{Field: "config", Reason: "missing url"}
	}
	return nil
}

// Clone returns a copy of the configuration with its own header and extra
// maps. Values inside Extra are shared; the registry treats them as opaque.
func (c *ServerConfig) Clone() *ServerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Headers = maps.Clone(c.Headers)
	clone.Extra = maps.Clone(c.Extra)
	return &clone
}

// Equal reports structural equality between two configurations.
func (c *ServerConfig) Equal(other *ServerConfig) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.URL == other.URL &&
		c.AuthToken == other.AuthToken &&
		c.Transport == other.Transport &&
		maps.Equal(c.Headers, other.Headers) &&
		reflect.DeepEqual(c.Extra, other.Extra)
}

func (c *ServerConfig) fromMap(raw map[string]any) error {
	var extra map[string]any
	for key, value := range raw {
		switch key {
		case "url":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("mcpreg: config field %q must be a string, got %T", key, value)
			}
			c.URL = s
		case "auth":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("mcpreg: config field %q must be a string, got %T", key, value)
			}
			c.AuthToken = s
		case "transport":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("mcpreg: config field %q must be a string, got %T", key, value)
			}
			c.Transport = TransportKind(s)
		case "headers":
			headers, err := stringMap(value)
			if err != nil {
				return fmt.Errorf("mcpreg: config field %q: %w", key, err)
			}
			c.Headers = headers
		default:
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[key] = value
		}
	}
	c.Extra = extra
	return nil
}

func (c *ServerConfig) toMap() map[string]any {
	raw := make(map[string]any, 4+len(c.Extra))
	for key, value := range c.Extra {
		raw[key] = value
	}
	raw["url"] = c.URL
	if c.AuthToken != "" {
		raw["auth"] = c.AuthToken
	}
	if c.Transport != "" {
		raw["transport"] = string(c.Transport)
	}
	if len(c.Headers) > 0 {
		raw["headers"] = c.Headers
	}
	return raw
}

// UnmarshalJSON decodes the open record shape used by "mcpServers" documents:
// url, auth, headers, and transport are recognized, every other key lands in
// Extra.
func (c *ServerConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return c.fromMap(raw)
}

// MarshalJSON emits the same open record shape UnmarshalJSON accepts.
func (c *ServerConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toMap())
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (c *ServerConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return c.fromMap(raw)
}

func stringMap(value any) (map[string]string, error) {
	switch v := value.(type) {
	case map[string]string:
		return maps.Clone(v), nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for key, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("value for %q must be a string, got %T", key, item)
			}
			out[key] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string map, got %T", value)
	}
}
