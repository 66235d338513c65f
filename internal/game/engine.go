package game

import (
	"context"
	"errors"

	"github.com/park285/yokai-board/internal/position"
)

var (
	ErrEngineUnavailable = errors.New("move engine unavailable")
	ErrNoEngineMove      = errors.New("move engine found no move")
	ErrInvalidAction     = errors.New("invalid action")
	ErrBusy              = errors.New("engine call already in flight")
	ErrGameOver          = errors.New("game is over")
	ErrNotYourTurn       = errors.New("side to move is not controlled by input")
)

// Position is the engine-native form: a 12-character board and compact reserves.
type Position struct {
	Board    string `json:"board"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

// Text is the six-field position text.
func (p Position) Text() string { return position.Compose(p.Board, p.Reserve0, p.Reserve1) }

func (p Position) Validate() error { return position.ValidateCompact(p.Board, p.Reserve0, p.Reserve1) }

func (p Position) Reserve(side position.Side) string {
	if side == position.Side1 {
		return p.Reserve1
	}
	return p.Reserve0
}

// Winner applies the terminal rule of Configuration.Winner to p.
func (p Position) Winner() (position.Side, bool) { return winnerOf(p.Reserve0, p.Reserve1) }

func (p Position) String() string { return p.Board + "|" + p.Reserve0 + "|" + p.Reserve1 }

// Engine is the external move engine. Implementations never keep per-game state between calls:
// every call carries the position it works on and returns the resulting position.
type Engine interface {
	// Valid reports whether the side to move may play a in pos.
	Valid(ctx context.Context, pos Position, player position.Side, a Action) (bool, error)
	// Play applies a, which the caller has validated, and returns the new position.
	Play(ctx context.Context, pos Position, player position.Side, a Action) (Position, error)
	// Search picks and applies a move for player within the depth budget. The bool is false when
	// no move was found; the returned position then equals pos.
	Search(ctx context.Context, pos Position, player position.Side, depth int) (Position, bool, error)
}
