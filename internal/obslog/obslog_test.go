package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"chatty":  zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q): got %v want %v", in, got, want)
		}
	}
}

func TestBuildWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yokai.log")
	logger, err := Build(Config{Level: "debug", Format: "json", ToFile: true, File: path})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	logger.Debug("session_started")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"session_started"`) {
		t.Fatalf("unexpected log contents %q", raw)
	}
}

func TestBuildWithoutOutputsIsNop(t *testing.T) {
	logger, err := Build(Config{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected a no-op logger")
	}
}

func TestInitInstallsGlobal(t *testing.T) {
	prev := L()
	t.Cleanup(func() { globalLogger = prev })
	if err := Init(Config{Level: "warn", Console: true}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if L() == prev {
		t.Fatalf("Init must replace the global logger")
	}
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be filtered at warn level")
	}
}
