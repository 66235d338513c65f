package game

import (
	"context"
	"fmt"

	"github.com/park285/yokai-board/internal/position"
)

// DefaultBoard is the starting arrangement: side0 on rank 1 and 2, side1 on rank 3 and 4.
const DefaultBoard = "TKB.P..p.bkt"

// Configuration is the authoritative per-turn state. BoardState is a decoded view of it.
// currentPlayer changes only through Refresh, which runs after a committed move.
type Configuration struct {
	engine   Engine
	board    string
	reserve0 string
	reserve1 string
	current  position.Side
}

// Default returns the starting position with empty reserves and side0 to move.
func Default(engine Engine) *Configuration {
	return &Configuration{engine: engine, board: DefaultBoard, current: position.Side0}
}

// NewConfiguration starts from an arbitrary engine-native position.
func NewConfiguration(engine Engine, pos Position, player position.Side) (*Configuration, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	if !player.Valid() {
		return nil, fmt.Errorf("invalid player %d", player)
	}
	return &Configuration{
		engine:   engine,
		board:    pos.Board,
		reserve0: pos.Reserve0,
		reserve1: pos.Reserve1,
		current:  player,
	}, nil
}

func (c *Configuration) Board() string                { return c.board }
func (c *Configuration) Reserve0Text() string         { return c.reserve0 }
func (c *Configuration) Reserve1Text() string         { return c.reserve1 }
func (c *Configuration) CurrentPlayer() position.Side { return c.current }

func (c *Configuration) Position() Position {
	return Position{Board: c.board, Reserve0: c.reserve0, Reserve1: c.reserve1}
}

// Text is the six-field position text of the configuration.
func (c *Configuration) Text() string { return c.Position().Text() }

func (c *Configuration) String() string {
	return c.board + "|" + c.reserve0 + "|" + c.reserve1
}

// Clone copies the configuration; both copies share the engine.
func (c *Configuration) Clone() *Configuration {
	cp := *c
	return &cp
}

// Refresh adopts the engine's position and flips the side to move. It reads all three parts
// before touching anything, so a malformed engine answer leaves the configuration unchanged.
func (c *Configuration) Refresh(pos Position) error {
	if err := pos.Validate(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	c.board, c.reserve0, c.reserve1 = pos.Board, pos.Reserve0, pos.Reserve1
	c.current = c.current.Opponent()
	return nil
}

// RequestMove asks the engine whether a is legal for the side to move. It never mutates.
func (c *Configuration) RequestMove(ctx context.Context, a Action) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, nil
	}
	if c.engine == nil {
		return false, ErrEngineUnavailable
	}
	ok, err := c.engine.Valid(ctx, c.Position(), c.current, a)
	if err != nil {
		return false, fmt.Errorf("%w: valid: %w", ErrEngineUnavailable, err)
	}
	return ok, nil
}

// CommitMove re-validates a and, when legal, has the engine apply it and refreshes.
// An illegal action is a no-op reported as (false, nil); the caller restores its own UI state.
func (c *Configuration) CommitMove(ctx context.Context, a Action) (bool, error) {
	ok, err := c.RequestMove(ctx, a)
	if err != nil || !ok {
		return false, err
	}
	next, err := c.engine.Play(ctx, c.Position(), c.current, a)
	if err != nil {
		return false, fmt.Errorf("%w: play: %w", ErrEngineUnavailable, err)
	}
	if err := c.Refresh(next); err != nil {
		return false, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return true, nil
}

// RequestEngineMove lets the engine choose and apply a move for the side to move.
// depth bounds the engine's lookahead; this is the only call that may run for long.
func (c *Configuration) RequestEngineMove(ctx context.Context, depth int) error {
	if c.engine == nil {
		return ErrEngineUnavailable
	}
	next, moved, err := c.engine.Search(ctx, c.Position(), c.current, depth)
	if err != nil {
		return fmt.Errorf("%w: search: %w", ErrEngineUnavailable, err)
	}
	if !moved {
		return ErrNoEngineMove
	}
	if err := c.Refresh(next); err != nil {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return nil
}

// Winner reports the winning side. Side0 wins once side1's reserve ends with side1's leader,
// side1 once side0's reserve ends with side0's leader. Only the trailing slot is inspected.
func (c *Configuration) Winner() (position.Side, bool) {
	return winnerOf(c.reserve0, c.reserve1)
}

func winnerOf(reserve0, reserve1 string) (position.Side, bool) {
	if endsWith(reserve1, position.LeaderOf(position.Side1).Char()) {
		return position.Side0, true
	}
	if endsWith(reserve0, position.LeaderOf(position.Side0).Char()) {
		return position.Side1, true
	}
	return 0, false
}

func endsWith(s string, c byte) bool { return len(s) > 0 && s[len(s)-1] == c }

// Snapshot captures the configuration for the history.
func (c *Configuration) Snapshot() Snapshot {
	return Snapshot{
		Board:    c.board,
		Reserve0: c.reserve0,
		Reserve1: c.reserve1,
		Player:   c.current,
	}
}
