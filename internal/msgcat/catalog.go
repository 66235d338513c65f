// Package msgcat renders user-facing texts for gesture outcomes, wire error codes and game status.
package msgcat

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"

	"github.com/park285/yokai-board/pkg/wire"
)

//go:embed messages.en.yaml
var defaultMessages []byte

const embeddedName = "messages.en.yaml"

const (
	keyWinner = "game.winner"
	keyToMove = "game.to_move"
)

// ErrorKey and OutcomeKey name the catalog entries for a wire error code and a move outcome.
func ErrorKey(code string) string      { return "error." + code }
func OutcomeKey(outcome string) string { return "outcome." + outcome }

// Required lists the keys every loaded catalog must define.
func Required() []string {
	keys := make([]string, 0, len(wire.Codes)+len(wire.Outcomes)+2)
	for _, code := range wire.Codes {
		keys = append(keys, ErrorKey(code))
	}
	for _, o := range wire.Outcomes {
		keys = append(keys, OutcomeKey(o))
	}
	return append(keys, keyWinner, keyToMove)
}

type message struct {
	tpl    *template.Template
	source string
	line   int
}

// Catalog holds parsed message templates. It is immutable once New returns; a nil Catalog renders
// every fallback.
type Catalog struct {
	messages map[string]message
}

// New loads the embedded English messages, applies every *.yaml / *.yml file of overrideDir in
// name order, parses all templates and checks that the required keys are present.
func New(overrideDir string) (*Catalog, error) {
	return load(defaultMessages, overrideDir)
}

func load(base []byte, overrideDir string) (*Catalog, error) {
	c := &Catalog{messages: make(map[string]message)}
	if err := c.apply(embeddedName, base, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	var missing []string
	for _, key := range Required() {
		if _, ok := c.messages[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("message catalog missing keys: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read messages dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// Two override files may not both set a key; either may replace an embedded one.
	owner := make(map[string]string)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.apply(name, raw, owner); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) apply(source string, raw []byte, owner map[string]string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	var errs []error
	walk(doc.Content[0], "", func(key string, n *yaml.Node, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", source, n.Line, err))
			return
		}
		if owner != nil {
			if prev, ok := owner[key]; ok {
				errs = append(errs, fmt.Errorf("%s:%d: duplicate override key %q (also in %s)", source, n.Line, key, prev))
				return
			}
			owner[key] = source
		}
		tpl, err := template.New(key).Option("missingkey=error").Parse(n.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", source, n.Line, err))
			return
		}
		c.messages[key] = message{tpl: tpl, source: source, line: n.Line}
	})
	return errors.Join(errs...)
}

// walk visits every string leaf of a mapping tree under its dotted key.
func walk(n *yaml.Node, prefix string, visit func(key string, n *yaml.Node, err error)) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			walk(n.Content[i+1], key, visit)
		}
	case yaml.ScalarNode:
		switch {
		case n.Tag == "!!null":
		case prefix == "":
			visit(prefix, n, errors.New("message without a key"))
		case n.Tag != "!!str":
			visit(prefix, n, fmt.Errorf("%s: want a string, got %s", prefix, n.Tag))
		default:
			visit(prefix, n, nil)
		}
	default:
		visit(prefix, n, fmt.Errorf("%s: want a string or a mapping", prefix))
	}
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	if c == nil {
		return "", fmt.Errorf("template not found: %s", key)
	}
	m, ok := c.messages[key]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := m.tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("%s (%s:%d): %w", key, m.source, m.line, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func (c *Catalog) text(key string, data any, fallback string) string {
	s, err := c.Render(key, data)
	if err != nil || s == "" {
		return fallback
	}
	return s
}

// Error is the message for a wire error code; detail fills {{.Detail}}.
func (c *Catalog) Error(code, detail string) string {
	fallback := detail
	if fallback == "" {
		fallback = code
	}
	return c.text(ErrorKey(code), map[string]any{"Detail": detail}, fallback)
}

// Outcome is the message for a finished gesture or engine turn.
func (c *Catalog) Outcome(outcome, action, reason string) string {
	return c.text(OutcomeKey(outcome), map[string]any{"Action": action, "Reason": reason}, reason)
}

// Status describes the game from the point of view of whoever looks at the board.
func (c *Catalog) Status(player int, winner *int) string {
	if winner != nil {
		return c.text(keyWinner, map[string]any{"Side": *winner}, fmt.Sprintf("side %d wins", *winner))
	}
	return c.text(keyToMove, map[string]any{"Side": player}, fmt.Sprintf("side %d to move", player))
}

// Source reports which file defined key and on which line.
func (c *Catalog) Source(key string) (string, int, bool) {
	if c == nil {
		return "", 0, false
	}
	m, ok := c.messages[key]
	return m.source, m.line, ok
}
