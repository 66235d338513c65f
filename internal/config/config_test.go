package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}
	d, err := cfg.Depth("")
	if err != nil || d != 4 {
		t.Fatalf("default depth: %d %v", d, err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  kind: pipe
  path: /usr/local/bin/yokai-engined
  args: ["--stdio"]
  pool_size: 2
  search_timeout: 12s
redis:
  url: redis://localhost:6379/1
  cache_ttl: 30m
search:
  presets:
    blitz: 2
  default_preset: blitz
bridge:
  computer_sides: [0, 1]
log:
  level: debug
  format: json
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Kind != EnginePipe || cfg.Engine.PoolSize != 2 || cfg.Engine.Args[0] != "--stdio" {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
	if cfg.Engine.SearchTimeout != 12*time.Second || cfg.Engine.CallTimeout != 5*time.Second {
		t.Fatalf("timeouts: %+v", cfg.Engine)
	}
	if cfg.Redis.CacheTTL != 30*time.Minute {
		t.Fatalf("cache ttl: %v", cfg.Redis.CacheTTL)
	}
	if d, err := cfg.Depth("blitz"); err != nil || d != 2 {
		t.Fatalf("blitz: %d %v", d, err)
	}
	if d, err := cfg.Depth("level5"); err != nil || d != 8 {
		t.Fatalf("default presets must survive a partial file: %d %v", d, err)
	}
	if len(cfg.Bridge.ComputerSides) != 2 || cfg.Log.Format != "json" || cfg.Source != path {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	path := writeConfig(t, "engine:\n  kind: local\n")
	t.Setenv("YOKAI_CONFIG", path)
	t.Setenv("YOKAI_ENGINE_KIND", "Remote")
	t.Setenv("YOKAI_ENGINE_URL", "http://engine:7070")
	t.Setenv("YOKAI_SEARCH_TIMEOUT", "45s")
	t.Setenv("YOKAI_COMPUTER_SIDES", "")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("LOG_TO_FILE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Kind != EngineRemote || cfg.Engine.URL != "http://engine:7070" {
		t.Fatalf("engine: %+v", cfg.Engine)
	}
	if cfg.Engine.SearchTimeout != 45*time.Second {
		t.Fatalf("search timeout: %v", cfg.Engine.SearchTimeout)
	}
	if len(cfg.Bridge.ComputerSides) != 0 {
		t.Fatalf("empty YOKAI_COMPUTER_SIDES means human vs human, got %v", cfg.Bridge.ComputerSides)
	}
	if cfg.Redis.URL != "redis://cache:6379/0" || !cfg.Log.ToFile {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("YOKAI_CONFIG", writeConfig(t, "{}\n"))
	t.Setenv("YOKAI_ENGINE_TIMEOUT", "soon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "YOKAI_ENGINE_TIMEOUT") {
		t.Fatalf("expected a duration error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{name: "pipe without path", mutate: func(c *AppConfig) { c.Engine.Kind = EnginePipe }, want: "engine.path"},
		{name: "remote without url", mutate: func(c *AppConfig) { c.Engine.Kind = EngineRemote }, want: "engine.url"},
		{name: "unknown kind", mutate: func(c *AppConfig) { c.Engine.Kind = "stockfish" }, want: "unknown engine.kind"},
		{name: "missing default preset", mutate: func(c *AppConfig) { c.Search.DefaultPreset = "nope" }, want: "default preset"},
		{name: "zero depth preset", mutate: func(c *AppConfig) { c.Search.Presets["zero"] = 0 }, want: "depth 0"},
		{name: "bad side", mutate: func(c *AppConfig) { c.Bridge.ComputerSides = []int{2} }, want: "invalid side 2"},
		{name: "duplicate side", mutate: func(c *AppConfig) { c.Bridge.ComputerSides = []int{1, 1} }, want: "listed twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("want error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDepthUnknownPreset(t *testing.T) {
	if _, err := Default().Depth("grandmaster"); err == nil || !strings.Contains(err.Error(), "level1") {
		t.Fatalf("expected unknown preset error listing names, got %v", err)
	}
}

func TestTokens(t *testing.T) {
	path := writeConfig(t, "engine:\n  headers:\n    X-Yokai-Tenant: club-7\n")
	t.Setenv("YOKAI_CONFIG", path)
	t.Setenv("YOKAI_ENGINE_TOKEN", "client-token")
	t.Setenv("YOKAI_ENGINE_API_TOKEN", "server-token")
	t.Setenv("YOKAI_BRIDGE_TOKEN", "bridge-token")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EngineAPI.Token != "server-token" || cfg.Bridge.Token != "bridge-token" {
		t.Fatalf("tokens: engine_api=%q bridge=%q", cfg.EngineAPI.Token, cfg.Bridge.Token)
	}
	headers := cfg.Engine.RequestHeaders()
	if headers["Authorization"] != "Bearer client-token" || headers["X-Yokai-Tenant"] != "club-7" || len(headers) != 2 {
		t.Fatalf("request headers: %v", headers)
	}
	headers["X-Yokai-Tenant"] = "changed"
	if cfg.Engine.Headers["X-Yokai-Tenant"] != "club-7" {
		t.Fatalf("RequestHeaders must return a copy")
	}
	if got := Default().Engine.RequestHeaders(); len(got) != 0 {
		t.Fatalf("defaults send no headers: %v", got)
	}
}
