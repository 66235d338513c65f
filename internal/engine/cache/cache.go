// Package cache memoises engine searches in redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
)

const (
	DefaultTTL    = 24 * time.Hour
	DefaultPrefix = "yokai:search:"
)

// entry is the stored search result. Moved=false records that the engine had no move.
type entry struct {
	Board    string `json:"board"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
	Moved    bool   `json:"moved"`
}

// Engine wraps another engine. Valid and Play pass through; Search results are stored per
// (position, player, depth). Redis failures degrade to the inner engine.
type Engine struct {
	inner  game.Engine
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

var _ game.Engine = (*Engine)(nil)

type Option func(*Engine)

func WithTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.ttl = d
		}
	}
}

func WithPrefix(p string) Option {
	return func(e *Engine) {
		if p != "" {
			e.prefix = p
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(inner game.Engine, rdb *redis.Client, opts ...Option) *Engine {
	e := &Engine{inner: inner, rdb: rdb, ttl: DefaultTTL, prefix: DefaultPrefix, log: obslog.L()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) key(pos game.Position, player position.Side, depth int) string {
	return e.prefix + pos.Text() + ":" + strconv.Itoa(int(player)) + ":" + strconv.Itoa(depth)
}

func (e *Engine) Valid(ctx context.Context, pos game.Position, player position.Side, a game.Action) (bool, error) {
	return e.inner.Valid(ctx, pos, player, a)
}

func (e *Engine) Play(ctx context.Context, pos game.Position, player position.Side, a game.Action) (game.Position, error) {
	return e.inner.Play(ctx, pos, player, a)
}

func (e *Engine) Search(ctx context.Context, pos game.Position, player position.Side, depth int) (game.Position, bool, error) {
	if err := pos.Validate(); err != nil {
		return pos, false, err
	}
	key := e.key(pos, player, depth)
	if hit, ok := e.load(ctx, key); ok {
		e.log.Debug("search_cache_hit", zap.String("key", key))
		if !hit.Moved {
			return pos, false, nil
		}
		return game.Position{Board: hit.Board, Reserve0: hit.Reserve0, Reserve1: hit.Reserve1}, true, nil
	}

	next, moved, err := e.inner.Search(ctx, pos, player, depth)
	if err != nil {
		return next, moved, err
	}
	e.store(ctx, key, entry{Board: next.Board, Reserve0: next.Reserve0, Reserve1: next.Reserve1, Moved: moved})
	return next, moved, nil
}

func (e *Engine) load(ctx context.Context, key string) (entry, bool) {
	raw, err := e.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return entry{}, false
	}
	if err != nil {
		e.log.Warn("search_cache_get_failed", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	var hit entry
	if err := json.Unmarshal(raw, &hit); err != nil {
		e.log.Warn("search_cache_corrupt", zap.String("key", key), zap.Error(err))
		return entry{}, false
	}
	if hit.Moved {
		if err := (game.Position{Board: hit.Board, Reserve0: hit.Reserve0, Reserve1: hit.Reserve1}).Validate(); err != nil {
			e.log.Warn("search_cache_corrupt", zap.String("key", key), zap.Error(err))
			return entry{}, false
		}
	}
	return hit, true
}

func (e *Engine) store(ctx context.Context, key string, v entry) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := e.rdb.Set(ctx, key, raw, e.ttl).Err(); err != nil {
		e.log.Warn("search_cache_set_failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge removes every cached search under the prefix.
func (e *Engine) Purge(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := e.rdb.Scan(ctx, cursor, e.prefix+"*", 256).Result()
		if err != nil {
			return total, fmt.Errorf("scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := e.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return total, fmt.Errorf("delete cache keys: %w", err)
			}
			total += int(n)
		}
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
