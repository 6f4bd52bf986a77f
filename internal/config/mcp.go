package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// mcpServerEntry mirrors the .mcp.json server record shape used by
// MCP-aware coding agents.
type mcpServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

type mcpFile struct {
	MCPServers map[string]mcpServerEntry `json:"mcpServers"`
}

// RegisterMCPServer adds (or replaces) the glee MCP server entry in the
// project's .mcp.json so connected agents can reach the review tools.
func RegisterMCPServer(projectPath string) error {
	path := filepath.Join(projectPath, ".mcp.json")

	doc := mcpFile{MCPServers: map[string]mcpServerEntry{}}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse .mcp.json: %w", err)
		}
		if doc.MCPServers == nil {
			doc.MCPServers = map[string]mcpServerEntry{}
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read .mcp.json: %w", err)
	}

	doc.MCPServers["glee"] = mcpServerEntry{
		Command: "glee",
		Args:    []string{"mcp", "serve"},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal .mcp.json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write .mcp.json: %w", err)
	}
	return nil
}
