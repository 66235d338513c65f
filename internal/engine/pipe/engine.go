package pipe

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
)

// Engine implements game.Engine on a pool of engine processes.
type Engine struct {
	pool *Pool
	log  *zap.Logger
}

var _ game.Engine = (*Engine)(nil)

func NewEngine(cfg PoolConfig, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = obslog.L()
	}
	pool, err := NewPool(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Engine{pool: pool, log: log}, nil
}

func (e *Engine) Pool() *Pool { return e.pool }

func (e *Engine) Close() error { return e.pool.Close() }

// with runs fn on a pooled session, dropping the session when fn fails.
func (e *Engine) with(ctx context.Context, fn func(*Session) error) error {
	session, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	var releaseErr error
	defer func() { e.pool.Release(session, releaseErr) }()
	releaseErr = fn(session)
	return releaseErr
}

func (e *Engine) Valid(ctx context.Context, pos game.Position, player position.Side, a game.Action) (bool, error) {
	var ok bool
	err := e.with(ctx, func(s *Session) error {
		var err error
		ok, err = s.Valid(ctx, pos, player, a)
		return err
	})
	return ok, err
}

func (e *Engine) Play(ctx context.Context, pos game.Position, player position.Side, a game.Action) (game.Position, error) {
	next := pos
	err := e.with(ctx, func(s *Session) error {
		var err error
		next, err = s.Play(ctx, pos, player, a)
		return err
	})
	if err != nil {
		return pos, err
	}
	return next, nil
}

func (e *Engine) Search(ctx context.Context, pos game.Position, player position.Side, depth int) (game.Position, bool, error) {
	next, moved := pos, false
	err := e.with(ctx, func(s *Session) error {
		var err error
		next, moved, err = s.Search(ctx, pos, player, depth)
		return err
	})
	if err != nil {
		return pos, false, err
	}
	return next, moved, nil
}
