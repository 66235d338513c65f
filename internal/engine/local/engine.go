// Package local is the in-process reference move engine. It is stateless: every call decodes the
// position it is given.
package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
)

const (
	MinDepth = 1
	MaxDepth = 8
)

var (
	errGameDecided = errors.New("game already decided")
	errLeaderDrop  = errors.New("leader cannot be dropped")
)

// ClampDepth bounds a requested search depth to [MinDepth, MaxDepth].
func ClampDepth(depth int) int {
	if depth < MinDepth {
		return MinDepth
	}
	if depth > MaxDepth {
		return MaxDepth
	}
	return depth
}

type Engine struct {
	log *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{log: obslog.L()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ game.Engine = (*Engine)(nil)

func (e *Engine) Valid(ctx context.Context, pos game.Position, player position.Side, a game.Action) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s, err := load(pos)
	if err != nil {
		return false, err
	}
	if !player.Valid() {
		return false, fmt.Errorf("invalid player %d", player)
	}
	if err := s.check(player, a); err != nil {
		e.log.Debug("local_invalid_action", zap.String("action", a.String()), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (e *Engine) Play(ctx context.Context, pos game.Position, player position.Side, a game.Action) (game.Position, error) {
	if err := ctx.Err(); err != nil {
		return pos, err
	}
	s, err := load(pos)
	if err != nil {
		return pos, err
	}
	if !player.Valid() {
		return pos, fmt.Errorf("invalid player %d", player)
	}
	if err := s.check(player, a); err != nil {
		return pos, fmt.Errorf("%w: %v", game.ErrInvalidAction, err)
	}
	return s.apply(player, a).position(), nil
}

func (e *Engine) Search(ctx context.Context, pos game.Position, player position.Side, depth int) (game.Position, bool, error) {
	if err := ctx.Err(); err != nil {
		return pos, false, err
	}
	s, err := load(pos)
	if err != nil {
		return pos, false, err
	}
	if !player.Valid() {
		return pos, false, fmt.Errorf("invalid player %d", player)
	}
	depth = ClampDepth(depth)
	started := time.Now()
	sr := searcher{ctx: ctx}
	best, ok, err := sr.root(s, player, depth)
	if err != nil {
		return pos, false, err
	}
	if !ok {
		e.log.Debug("local_search_no_move", zap.String("position", pos.String()), zap.Stringer("player", player))
		return pos, false, nil
	}
	e.log.Debug("local_search_done",
		zap.String("action", best.String()),
		zap.Int("depth", depth),
		zap.Int("nodes", sr.nodes),
		zap.Duration("elapsed", time.Since(started)),
	)
	return s.apply(player, best).position(), true, nil
}
