package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/yokai-board/pkg/wire"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestEmbeddedCoversEveryCodeAndOutcome(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, code := range wire.Codes {
		if src, _, ok := c.Source(ErrorKey(code)); !ok || src != embeddedName {
			t.Fatalf("error.%s: source=%q ok=%v", code, src, ok)
		}
		if got := c.Error(code, "x"); got == "" || got == code {
			t.Fatalf("error.%s rendered %q", code, got)
		}
	}
	for _, o := range wire.Outcomes {
		if _, _, ok := c.Source(OutcomeKey(o)); !ok {
			t.Fatalf("missing outcome.%s", o)
		}
	}
}

func TestTexts(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "error with detail", got: c.Error(wire.CodeUnknownRegion, "sq-z9"), want: "sq-z9 is not a board square or reserve slot."},
		{name: "error without detail", got: c.Error(wire.CodeBusy, ""), want: "Wait for the engine to finish its move."},
		{name: "unknown code falls back", got: c.Error("martian", "boom"), want: "boom"},
		{name: "abandoned", got: c.Outcome(wire.OutcomeAbandoned, "", "dropped on origin"), want: "Move abandoned: dropped on origin."},
		{name: "rejected", got: c.Outcome(wire.OutcomeRejected, "move P b2 a3", "illegal"), want: "move P b2 a3 is not a legal move."},
		{name: "to move", got: c.Status(1, nil), want: "Side 1 to move."},
		{name: "winner", got: c.Status(1, &[]int{0}[0]), want: "Side 0 captured the leader and wins."},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s: got %q want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestNilCatalogUsesFallbacks(t *testing.T) {
	var c *Catalog
	if got := c.Error(wire.CodeBusy, ""); got != wire.CodeBusy {
		t.Fatalf("error fallback: %q", got)
	}
	if got := c.Outcome(wire.OutcomeAbandoned, "", "outside"); got != "outside" {
		t.Fatalf("outcome fallback: %q", got)
	}
	if got := c.Status(0, nil); got != "side 0 to move" {
		t.Fatalf("status fallback: %q", got)
	}
}

func TestRenderMissingDataFails(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := c.Render(OutcomeKey(wire.OutcomeRejected), map[string]any{}); err == nil {
		t.Fatalf("missing template data must fail")
	}
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("unknown key must fail")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "error:\n  busy: \"Patience.\"\n")
	writeFile(t, dir, "notes.txt", "ignored")
	c, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := c.Error(wire.CodeBusy, ""); got != "Patience." {
		t.Fatalf("override: %q", got)
	}
	if src, line, _ := c.Source(ErrorKey(wire.CodeBusy)); src != "a.yaml" || line != 2 {
		t.Fatalf("source: %s:%d", src, line)
	}

	writeFile(t, dir, "b.yml", "error:\n  busy: \"Again.\"\n")
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "number", body: "error:\n  busy: 3\n", want: "a.yaml:2"},
		{name: "list", body: "error:\n  busy:\n    - a\n", want: "want a string or a mapping"},
		{name: "bad template", body: "error:\n  busy: \"{{.Detail\"\n", want: "a.yaml:2"},
		{name: "not yaml", body: "error: [\n", want: "parse a.yaml"},
	}
	for _, tt := range tests {
		dir := t.TempDir()
		writeFile(t, dir, "a.yaml", tt.body)
		if _, err := New(dir); err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: want error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestRequiredKeysEnforced(t *testing.T) {
	_, err := load([]byte("error:\n  busy: \"b\"\n"), "")
	if err == nil {
		t.Fatalf("partial catalog must be rejected")
	}
	for _, key := range []string{ErrorKey(wire.CodeInternal), OutcomeKey(wire.OutcomeAbandoned), keyWinner} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error must name %s: %v", key, err)
		}
	}
	if strings.Contains(err.Error(), ErrorKey(wire.CodeBusy)+",") {
		t.Fatalf("defined key reported missing: %v", err)
	}

	dir := t.TempDir()
	writeFile(t, dir, "rest.yaml", string(defaultMessages))
	if _, err := load([]byte("error:\n  busy: \"b\"\n"), dir); err != nil {
		t.Fatalf("override dir completing the catalog: %v", err)
	}
}
