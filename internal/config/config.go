package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config is the runtime configuration store. Values live in
// ~/.cora/config.json and are addressed by dotted paths such as
// "relay.poll_interval". Reads fall back to registered defaults, so a
// missing or empty file is never an error.
type Config struct {
	mu    sync.RWMutex
	v     *viper.Viper
	path  string
	dirty bool
}

// Dir returns the per-user configuration directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	dir := filepath.Join(home, ".cora")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Load reads the runtime config from the default location.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.json"))
}

// LoadFrom reads the runtime config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{v: v, path: path}

	// Every installation gets a stable anchor identity on first run.
	if cfg.GetString("anchor.id") == "" {
		cfg.Set("anchor.id", "anchor-"+uuid.NewString()[:8])
		if host, err := os.Hostname(); err == nil && cfg.GetString("anchor.name") == "" {
			cfg.Set("anchor.name", host)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// registerDefaults mirrors the shipped defaults so that Get on a fresh
// install returns something sensible for every known key.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("anchor.id", "")
	v.SetDefault("anchor.name", "")

	v.SetDefault("relay.url", "")
	v.SetDefault("relay.anon_key", "")
	v.SetDefault("relay.poll_interval", 2)
	v.SetDefault("relay.heartbeat_interval", 30)

	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.ollama_url", "http://localhost:11434")
	v.SetDefault("ai.ollama_model", "llama3.2")
	v.SetDefault("ai.openai_key", "")
	v.SetDefault("ai.openai_model", "gpt-4o-mini")
	v.SetDefault("ai.openai_base_url", "")

	v.SetDefault("voice.enabled", true)
	v.SetDefault("voice.engine", "")
	v.SetDefault("voice.rate", 180)

	v.SetDefault("web.pair_url", "https://cora.app/pair")
}

// Get returns the raw value at a dotted path, or nil when unknown.
func (c *Config) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.Get(key)
}

// GetString returns the string value at a dotted path.
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}

// GetInt returns the integer value at a dotted path.
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetInt(key)
}

// GetBool returns the boolean value at a dotted path.
func (c *Config) GetBool(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetBool(key)
}

// Set stores a value at a dotted path. The change is kept in memory
// until Save is called.
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v.Set(key, value)
	c.dirty = true
}

// Save writes the current state back to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	c.dirty = false
	return nil
}

// Path returns where the config is persisted.
func (c *Config) Path() string {
	return c.path
}

// RelayConfigured reports whether both relay endpoint settings are present.
func (c *Config) RelayConfigured() bool {
	return c.GetString("relay.url") != "" && c.GetString("relay.anon_key") != ""
}

// Redacted returns a copy of all settings with secrets masked, for the
// doctor command and debug dumps.
func (c *Config) Redacted() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]any)
	for _, key := range c.v.AllKeys() {
		val := c.v.Get(key)
		if s, ok := val.(string); ok && s != "" && isSecretKey(key) {
			val = s[:min(4, len(s))] + "..."
		}
		out[key] = val
	}
	return out
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "_key") || strings.HasSuffix(key, "anon_key") || strings.Contains(key, "token")
}
