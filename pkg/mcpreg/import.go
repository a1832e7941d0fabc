package mcpreg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServersDocument is the bulk configuration shape accepted at the boundary:
//
//	{ "mcpServers": { "<name>": { "url": ..., ... } } }
//
// Names are independent of any URL inside the configs; duplicate URLs across
// entries are legal and are never deduplicated.
type ServersDocument struct {
	MCPServers map[string]*ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ParseServersJSON decodes a ServersDocument from JSON.
func ParseServersJSON(data []byte) (*ServersDocument, error) {
	var doc ServersDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mcpreg: parsing servers document: %w", err)
	}
	return &doc, nil
}

// ParseServersYAML decodes a ServersDocument from YAML.
func ParseServersYAML(data []byte) (*ServersDocument, error) {
	var doc ServersDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mcpreg: parsing servers document: %w", err)
	}
	return &doc, nil
}

// LoadServersFile reads a ServersDocument from disk, selecting the decoder by
// file extension (.yaml/.yml for YAML, JSON otherwise).
func LoadServersFile(path string) (*ServersDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcpreg: reading servers file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseServersYAML(data)
	default:
		return ParseServersJSON(data)
	}
}

// AddServers registers every entry of doc via AddServer. Entries that fail
// validation are reported joined; valid entries are still registered.
func (r *Registry) AddServers(doc *ServersDocument) error {
	if doc == nil {
		return nil
	}
	var errs []error
	for _, name := range sortedKeys(doc.MCPServers) {
		if err := r.AddServer(name, doc.MCPServers[name]); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]*ServerConfig) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	// Deterministic registration order keeps validation errors stable.
	sort.Strings(names)
	return names
}
