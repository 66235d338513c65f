package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"

	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/pkg/wire"
)

// FileName is looked up under the XDG config directories.
const FileName = "yokai-board/config.yaml"

const (
	EngineLocal  = "local"
	EnginePipe   = "pipe"
	EngineRemote = "remote"
)

type EngineConfig struct {
	Kind          string        `yaml:"kind"`
	Path          string        `yaml:"path"`
	Args          []string      `yaml:"args"`
	URL           string        `yaml:"url"`
	PoolSize      int           `yaml:"pool_size"`
	ReadyTimeout  time.Duration `yaml:"ready_timeout"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	Retry         int           `yaml:"retry"`
	// Token is sent as a bearer token to a remote engine; Headers are sent as they are.
	Token   string            `yaml:"token"`
	Headers map[string]string `yaml:"headers"`
}

// RequestHeaders are the extra headers of every remote engine request.
func (e EngineConfig) RequestHeaders() map[string]string {
	out := make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		out[k] = v
	}
	if e.Token != "" {
		out[wire.AuthorizationHeader] = wire.Bearer(e.Token)
	}
	return out
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Prefix   string        `yaml:"prefix"`
}

type SearchConfig struct {
	Presets       map[string]int `yaml:"presets"`
	DefaultPreset string         `yaml:"default_preset"`
}

type BridgeConfig struct {
	Listen string `yaml:"listen"`
	// ComputerSides lists the sides the engine plays, e.g. [1].
	ComputerSides []int  `yaml:"computer_sides"`
	Orientation   int    `yaml:"orientation"`
	MessagesDir   string `yaml:"messages_dir"`
	// Token, when set, is required from websocket clients as a bearer token.
	Token string `yaml:"token"`
}

type EngineAPIConfig struct {
	Listen string `yaml:"listen"`
	Name   string `yaml:"name"`
	Token  string `yaml:"token"`
}

type AppConfig struct {
	Engine    EngineConfig    `yaml:"engine"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	EngineAPI EngineAPIConfig `yaml:"engine_api"`
	Log       obslog.Config   `yaml:"log"`

	// Source is the file the configuration was read from, empty for defaults and env only.
	Source string `yaml:"-"`
}

func Default() *AppConfig {
	return &AppConfig{
		Engine: EngineConfig{
			Kind:          EngineLocal,
			ReadyTimeout:  5 * time.Second,
			CallTimeout:   5 * time.Second,
			SearchTimeout: 30 * time.Second,
			Retry:         3,
		},
		Redis: RedisConfig{CacheTTL: 24 * time.Hour, Prefix: "yokai:search:"},
		Search: SearchConfig{
			Presets:       map[string]int{"level1": 1, "level2": 2, "level3": 4, "level4": 6, "level5": 8},
			DefaultPreset: "level3",
		},
		Bridge:    BridgeConfig{Listen: ":8080", ComputerSides: []int{1}},
		EngineAPI: EngineAPIConfig{Listen: ":7070", Name: "yokai-engined"},
		Log:       obslog.DefaultConfig(),
	}
}

// Load applies defaults, then the config file (YOKAI_CONFIG or the XDG lookup), then environment
// overrides, and validates the result.
func Load() (*AppConfig, error) {
	cfg := Default()

	path := strings.TrimSpace(os.Getenv("YOKAI_CONFIG"))
	if path == "" {
		if found, err := xdg.SearchConfigFile(FileName); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one YAML file over the defaults, without environment overrides.
func LoadFile(path string) (*AppConfig, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Source = path
	return nil
}

func (c *AppConfig) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_KIND")); v != "" {
		c.Engine.Kind = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_PATH")); v != "" {
		c.Engine.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_URL")); v != "" {
		c.Engine.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_TOKEN")); v != "" {
		c.Engine.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.PoolSize = n
		}
	}
	if err := envDuration("YOKAI_ENGINE_TIMEOUT", &c.Engine.CallTimeout); err != nil {
		return err
	}
	if err := envDuration("YOKAI_SEARCH_TIMEOUT", &c.Engine.SearchTimeout); err != nil {
		return err
	}

	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.Redis.URL = v
	}
	if err := envDuration("YOKAI_CACHE_TTL", &c.Redis.CacheTTL); err != nil {
		return err
	}

	if v := strings.TrimSpace(os.Getenv("YOKAI_DEFAULT_PRESET")); v != "" {
		c.Search.DefaultPreset = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_BRIDGE_ADDR")); v != "" {
		c.Bridge.Listen = v
	}
	if v, ok := os.LookupEnv("YOKAI_COMPUTER_SIDES"); ok {
		sides, err := parseSides(v)
		if err != nil {
			return err
		}
		c.Bridge.ComputerSides = sides
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_BRIDGE_TOKEN")); v != "" {
		c.Bridge.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_ADDR")); v != "" {
		c.EngineAPI.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("YOKAI_ENGINE_API_TOKEN")); v != "" {
		c.EngineAPI.Token = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		c.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		c.Log.File = v
	}
	envBool("LOG_TO_CONSOLE", &c.Log.Console)
	envBool("LOG_TO_FILE", &c.Log.ToFile)
	envBool("LOG_CALLER", &c.Log.Caller)
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func parseSides(raw string) ([]int, error) {
	var sides []int
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("YOKAI_COMPUTER_SIDES: %q is not a side", s)
		}
		sides = append(sides, n)
	}
	return sides, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Engine.Kind {
	case EngineLocal:
	case EnginePipe:
		if strings.TrimSpace(c.Engine.Path) == "" {
			errs = append(errs, errors.New("engine.path is required for the pipe engine"))
		}
	case EngineRemote:
		if strings.TrimSpace(c.Engine.URL) == "" {
			errs = append(errs, errors.New("engine.url is required for the remote engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine.kind %q", c.Engine.Kind))
	}
	if c.Engine.CallTimeout <= 0 || c.Engine.SearchTimeout <= 0 {
		errs = append(errs, errors.New("engine timeouts must be positive"))
	}
	if c.Redis.URL != "" && c.Redis.CacheTTL <= 0 {
		errs = append(errs, errors.New("redis.cache_ttl must be positive"))
	}
	if len(c.Search.Presets) == 0 {
		errs = append(errs, errors.New("search.presets is empty"))
	}
	for name, depth := range c.Search.Presets {
		if depth < 1 {
			errs = append(errs, fmt.Errorf("search preset %q: depth %d", name, depth))
		}
	}
	if _, ok := c.Search.Presets[c.Search.DefaultPreset]; !ok {
		errs = append(errs, fmt.Errorf("default preset %q is not defined", c.Search.DefaultPreset))
	}
	seen := map[int]bool{}
	for _, s := range c.Bridge.ComputerSides {
		if s != 0 && s != 1 {
			errs = append(errs, fmt.Errorf("bridge.computer_sides: invalid side %d", s))
		}
		if seen[s] {
			errs = append(errs, fmt.Errorf("bridge.computer_sides: side %d listed twice", s))
		}
		seen[s] = true
	}
	if c.Bridge.Orientation != 0 && c.Bridge.Orientation != 1 {
		errs = append(errs, fmt.Errorf("bridge.orientation: invalid side %d", c.Bridge.Orientation))
	}
	return errors.Join(errs...)
}

// Depth resolves a preset name; an empty name selects the default preset.
func (c *AppConfig) Depth(preset string) (int, error) {
	name := strings.TrimSpace(preset)
	if name == "" {
		name = c.Search.DefaultPreset
	}
	d, ok := c.Search.Presets[name]
	if !ok {
		return 0, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(c.PresetNames(), ", "))
	}
	return d, nil
}

func (c *AppConfig) PresetNames() []string {
	names := make([]string, 0, len(c.Search.Presets))
	for n := range c.Search.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
