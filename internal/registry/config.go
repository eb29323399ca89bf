package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/shlex"

	"github.com/relaymcp/relaymcp/internal/mcperr"
)

// NamedServerFlag is one `--named-server NAME COMMAND_STRING` flag
// occurrence, in the order given on the command line.
type NamedServerFlag struct {
	Name          string
	CommandString string
}

// fileServer is one entry of a --named-server-config file's
// "mcpServers" map. Timeout and TransportType are accepted but
// ignored: transport is always stdio, per the stdio-only backend
// model this proxy implements.
type fileServer struct {
	Command       string   `json:"command"`
	Args          []string `json:"args"`
	Enabled       *bool    `json:"enabled"`
	Timeout       int      `json:"timeout"`
	TransportType string   `json:"transportType"`
}

type namedServerFile struct {
	MCPServers map[string]fileServer `json:"mcpServers"`
}

// LoadFromFile decodes a --named-server-config JSON file. A server
// missing "enabled" defaults to enabled; "enabled": false drops it
// entirely, matching the config-exclusivity testable property: the
// resulting backend set equals exactly the file's enabled servers.
func LoadFromFile(path string) ([]Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, mcperr.New(mcperr.ConfigInvalid, path, err)
	}

	var doc namedServerFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, mcperr.New(mcperr.ConfigInvalid, fmt.Sprintf("parse %s", path), err)
	}

	backends := make([]Backend, 0, len(doc.MCPServers))
	for name, s := range doc.MCPServers {
		if s.Enabled != nil && !*s.Enabled {
			continue
		}
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		if s.Command == "" {
			return nil, mcperr.New(mcperr.ConfigInvalid, fmt.Sprintf("server %q: command is required", name), nil)
		}
		backends = append(backends, Backend{
			Name:    name,
			Command: s.Command,
			Args:    s.Args,
			Enabled: true,
		})
	}
	return backends, nil
}

// LoadFromFlags turns repeated --named-server flags into backends,
// splitting each COMMAND_STRING with POSIX shell word rules so a
// quoted argument containing spaces survives intact.
func LoadFromFlags(flags []NamedServerFlag) ([]Backend, error) {
	backends := make([]Backend, 0, len(flags))
	for _, f := range flags {
		if err := ValidateName(f.Name); err != nil {
			return nil, err
		}
		args, err := shlex.Split(f.CommandString)
		if err != nil {
			return nil, mcperr.New(mcperr.ConfigInvalid, fmt.Sprintf("named server %q: %s", f.Name, f.CommandString), err)
		}
		if len(args) == 0 {
			return nil, mcperr.New(mcperr.ConfigInvalid, fmt.Sprintf("named server %q: empty command", f.Name), nil)
		}
		backends = append(backends, Backend{
			Name:    f.Name,
			Command: args[0],
			Args:    args[1:],
			Enabled: true,
		})
	}
	return backends, nil
}

// Resolve applies the three-source precedence from the backend
// registry's loading rule: a config file, when present, is the
// exclusive source of named backends and any --named-server flags are
// silently discarded.
func Resolve(configFile string, flags []NamedServerFlag) ([]Backend, error) {
	if configFile != "" {
		return LoadFromFile(configFile)
	}
	return LoadFromFlags(flags)
}
