// Package builder assembles the move engine stack described by the configuration.
package builder

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/config"
	"github.com/park285/yokai-board/internal/engine/cache"
	"github.com/park285/yokai-board/internal/engine/local"
	"github.com/park285/yokai-board/internal/engine/pipe"
	"github.com/park285/yokai-board/internal/engine/remote"
	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

type Deps struct {
	// Engine is the outermost engine: the search cache when redis is configured.
	Engine game.Engine
	// Base is the engine selected by engine.kind.
	Base  game.Engine
	Redis *redis.Client
	Kind  string

	closers []func() error
}

func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{Kind: cfg.Engine.Kind}

	switch cfg.Engine.Kind {
	case config.EngineLocal:
		deps.Base = local.New(local.WithLogger(logger))
	case config.EnginePipe:
		eng, err := pipe.NewEngine(pipe.PoolConfig{
			Process: pipe.Process{
				Path:         cfg.Engine.Path,
				Args:         append([]string(nil), cfg.Engine.Args...),
				ReadyTimeout: cfg.Engine.ReadyTimeout,
				CallTimeout:  cfg.Engine.CallTimeout,
			},
			Capacity: cfg.Engine.PoolSize,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init pipe engine: %w", err)
		}
		deps.Base = eng
		deps.closers = append(deps.closers, eng.Close)
	case config.EngineRemote:
		opts := []remote.Option{
			remote.WithTimeout(cfg.Engine.CallTimeout),
			remote.WithSearchTimeout(cfg.Engine.SearchTimeout),
			remote.WithRetry(cfg.Engine.Retry),
			remote.WithLogger(logger),
		}
		if headers := cfg.Engine.RequestHeaders(); len(headers) > 0 {
			opts = append(opts, remote.WithHeaderProvider(func() map[string]string { return headers }))
		}
		deps.Base = remote.NewClient(cfg.Engine.URL, opts...)
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind)
	}
	deps.Engine = deps.Base

	if strings.TrimSpace(cfg.Redis.URL) != "" {
		opts, err := parseRedisURL(cfg.Redis.URL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			_ = deps.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		deps.Redis = rdb
		deps.closers = append(deps.closers, rdb.Close)
		deps.Engine = cache.New(deps.Base, rdb,
			cache.WithTTL(cfg.Redis.CacheTTL),
			cache.WithPrefix(cfg.Redis.Prefix),
			cache.WithLogger(logger),
		)
	}

	logger.Info("engine_ready", zap.String("kind", deps.Kind), zap.Bool("search_cache", deps.Redis != nil))
	return deps, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	db := 0
	if u.Path != "" {
		p := strings.TrimPrefix(u.Path, "/")
		if p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				db = n
			}
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: u.User.Username(),
		Password: pass,
		DB:       db,
	}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// SessionOptions turns the bridge and search settings into options for every new game.
func SessionOptions(cfg *config.AppConfig) ([]game.SessionOption, error) {
	depth, err := cfg.Depth("")
	if err != nil {
		return nil, err
	}
	opts := []game.SessionOption{
		game.WithDefaultDepth(depth),
		game.WithOrientation(position.Side(cfg.Bridge.Orientation)),
	}
	for _, side := range cfg.Bridge.ComputerSides {
		opts = append(opts, game.WithComputer(position.Side(side), depth))
	}
	return opts, nil
}
