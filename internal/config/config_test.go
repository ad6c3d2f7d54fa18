package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFrom_FreshInstallGetsAnchorIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id := cfg.GetString("anchor.id")
	if !strings.HasPrefix(id, "anchor-") {
		t.Errorf("expected generated anchor id, got %q", id)
	}

	// Identity is persisted, not regenerated
	again, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.GetString("anchor.id") != id {
		t.Errorf("anchor id changed across loads: %q vs %q", id, again.GetString("anchor.id"))
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.GetInt("relay.poll_interval"); got != 2 {
		t.Errorf("expected default poll interval 2, got %d", got)
	}
	if got := cfg.GetString("ai.ollama_url"); got != "http://localhost:11434" {
		t.Errorf("unexpected default ollama url: %q", got)
	}
	if cfg.RelayConfigured() {
		t.Error("fresh install should not report relay configured")
	}
}

func TestConfig_SetAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Set("relay.url", "https://example.supabase.co")
	cfg.Set("relay.anon_key", "key-123")
	if err := cfg.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reloaded.GetString("relay.url"); got != "https://example.supabase.co" {
		t.Errorf("unexpected relay url after reload: %q", got)
	}
	if !reloaded.RelayConfigured() {
		t.Error("expected relay configured after setting both keys")
	}
}

func TestConfig_RedactedMasksSecrets(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Set("relay.anon_key", "super-secret-value")

	redacted := cfg.Redacted()
	value := redacted["relay.anon_key"].(string)
	if strings.Contains(value, "secret-value") {
		t.Errorf("secret leaked in redacted dump: %q", value)
	}
}

func TestLoadStatic_SafetyDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cora.yaml")
	if err := os.WriteFile(path, []byte("mcp:\n  servers: []\n"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Safety.Blocked) == 0 {
		t.Error("expected default blocked list")
	}
	if len(cfg.Safety.ConfirmTools) == 0 {
		t.Error("expected default confirm_tools list")
	}
}

func TestLoadStatic_RejectsBadServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cora.yaml")
	yaml := `mcp:
  servers:
    - name: files
      transport: websocket
      command: mcp-files
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := LoadStatic(path); err == nil {
		t.Error("expected error for unsupported transport")
	}
}
