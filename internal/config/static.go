package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Static holds the parts of the configuration that are authored by hand
// rather than mutated at runtime: MCP server definitions and the shell
// safety lists. It lives in cora.yaml next to the binary or under
// ~/.config/cora/.
type Static struct {
	MCP    MCPConfig    `yaml:"mcp"`
	Safety SafetyConfig `yaml:"safety"`
}

// SafetyConfig drives the shell hooks.
type SafetyConfig struct {
	// Blocked commands are rejected outright when the substring matches.
	Blocked []string `yaml:"blocked"`
	// Confirm commands require interactive confirmation before running.
	Confirm []string `yaml:"confirm"`
	// ConfirmTools lists tool names that require interactive confirmation
	// before the executor runs them.
	ConfirmTools []string `yaml:"confirm_tools"`
}

// MCPConfig contains MCP-specific settings
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig defines a single MCP server
type MCPServerConfig struct {
	Name      string            `yaml:"name"`      // Unique server identifier
	Transport string            `yaml:"transport"` // "stdio" (only supported initially)
	Command   string            `yaml:"command"`   // Executable to run
	Args      []string          `yaml:"args"`      // Command arguments
	Env       map[string]string `yaml:"env"`       // Environment variables with ${VAR} support
	Disabled  bool              `yaml:"disabled"`  // Skip this server if true
}

// LoadStatic reads and parses the YAML config file
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Static
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.applySafetyDefaults()
	return &cfg, nil
}

// LoadStaticWithDefaults loads the static config with fallback to default
// locations. Checks: ./cora.yaml, ./configs/cora.yaml, ~/.config/cora/cora.yaml
func LoadStaticWithDefaults() (*Static, error) {
	locations := []string{
		"./cora.yaml",
		"./configs/cora.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".config", "cora", "cora.yaml"))
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return LoadStatic(loc)
		}
	}

	// No config found - return defaults (not an error)
	cfg := &Static{}
	cfg.applySafetyDefaults()
	return cfg, nil
}

// applySafetyDefaults fills in the shipped safety lists when the file
// does not define any.
func (c *Static) applySafetyDefaults() {
	if c.Safety.Blocked == nil {
		c.Safety.Blocked = []string{
			"rm -rf /",
			"mkfs",
			"dd if=",
			":(){ :|:& };:",
		}
	}
	if c.Safety.Confirm == nil {
		c.Safety.Confirm = []string{
			"rm -rf",
			"shutdown",
			"reboot",
			"kill -9",
		}
	}
	if c.Safety.ConfirmTools == nil {
		c.Safety.ConfirmTools = []string{
			"kill_process",
		}
	}
}

// Validate checks config correctness
func (c *Static) Validate() error {
	if len(c.MCP.Servers) == 0 {
		// Empty config is valid
		return nil
	}

	// Check for duplicate server names
	names := make(map[string]bool)
	for i, server := range c.MCP.Servers {
		if server.Name == "" {
			return fmt.Errorf("server #%d: name cannot be empty", i+1)
		}

		if names[server.Name] {
			return fmt.Errorf("duplicate server name: %s", server.Name)
		}
		names[server.Name] = true

		if err := server.Validate(); err != nil {
			return fmt.Errorf("server %s: %w", server.Name, err)
		}
	}

	return nil
}

// Validate checks a single server config
func (s *MCPServerConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	// Server names double as tool-name prefixes, so the character set is
	// restricted to what the function-calling API accepts.
	for _, ch := range s.Name {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-') {
			return fmt.Errorf("server name '%s' contains invalid character '%c' (only alphanumeric, underscore, and hyphen allowed)", s.Name, ch)
		}
	}

	if s.Transport == "" {
		return fmt.Errorf("transport is required")
	}

	if s.Transport != "stdio" {
		return fmt.Errorf("unsupported transport: %s (only 'stdio' is supported)", s.Transport)
	}

	if s.Command == "" {
		return fmt.Errorf("command is required")
	}

	return nil
}
