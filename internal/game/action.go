package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/yokai-board/internal/position"
)

type ActionKind string

const (
	ActionMove ActionKind = "move"
	ActionDrop ActionKind = "drop"
)

// Region tells whether a locator points at a board square or at a reserve slot.
type Region uint8

const (
	RegionBoard Region = iota
	RegionReserve0
	RegionReserve1
)

// Locator addresses a board square or a reserve slot.
type Locator struct {
	Region Region
	Index  int
}

func Square(index int) Locator { return Locator{Region: RegionBoard, Index: index} }

func ReserveSlot(side position.Side, slot int) Locator {
	if side == position.Side1 {
		return Locator{Region: RegionReserve1, Index: slot}
	}
	return Locator{Region: RegionReserve0, Index: slot}
}

func (l Locator) IsSquare() bool { return l.Region == RegionBoard }

// ReserveSide reports the owner of a reserve locator.
func (l Locator) ReserveSide() (position.Side, bool) {
	switch l.Region {
	case RegionReserve0:
		return position.Side0, true
	case RegionReserve1:
		return position.Side1, true
	}
	return 0, false
}

func (l Locator) Valid() bool {
	if l.IsSquare() {
		return l.Index >= 0 && l.Index < position.Squares
	}
	_, ok := l.ReserveSide()
	return ok && l.Index >= 0 && l.Index < position.ReserveSize
}

func (l Locator) String() string {
	if l.IsSquare() {
		return position.SquareName(l.Index)
	}
	side, _ := l.ReserveSide()
	return fmt.Sprintf("r%d:%d", side, l.Index)
}

// Action is one move request. It is built by the gesture mapper, consumed once, then dropped.
type Action struct {
	Kind        ActionKind
	Piece       position.Kind
	Source      Locator
	Destination Locator
}

// Move builds a board-to-board action.
func Move(kind position.Kind, from, to int) Action {
	return Action{Kind: ActionMove, Piece: kind, Source: Square(from), Destination: Square(to)}
}

// Drop builds a reserve-to-board action.
func Drop(kind position.Kind, side position.Side, slot, to int) Action {
	return Action{Kind: ActionDrop, Piece: kind, Source: ReserveSlot(side, slot), Destination: Square(to)}
}

// Validate checks the shape of the action, not its legality.
func (a Action) Validate() error {
	if !a.Piece.Valid() {
		return fmt.Errorf("%w: unknown piece kind %q", ErrInvalidAction, byte(a.Piece))
	}
	if !a.Destination.IsSquare() || !a.Destination.Valid() {
		return fmt.Errorf("%w: destination %s is not a board square", ErrInvalidAction, a.Destination)
	}
	switch a.Kind {
	case ActionMove:
		if !a.Source.IsSquare() || !a.Source.Valid() {
			return fmt.Errorf("%w: move source %s is not a board square", ErrInvalidAction, a.Source)
		}
	case ActionDrop:
		if a.Source.IsSquare() || !a.Source.Valid() {
			return fmt.Errorf("%w: drop source %s is not a reserve slot", ErrInvalidAction, a.Source)
		}
	default:
		return fmt.Errorf("%w: unknown action kind %q", ErrInvalidAction, a.Kind)
	}
	return nil
}

// String renders the line-protocol form, e.g. "move P b2 b3" or "drop B 1 c2".
// Drop sources are written as the bare slot index; the reserve is the mover's.
func (a Action) String() string {
	src := a.Source.String()
	if a.Kind == ActionDrop {
		src = strconv.Itoa(a.Source.Index)
	}
	return fmt.Sprintf("%s %s %s %s", a.Kind, a.Piece, src, a.Destination)
}

// ParseAction is the inverse of String. player selects the reserve for drops.
func ParseAction(raw string, player position.Side) (Action, error) {
	parts := strings.Fields(raw)
	if len(parts) != 4 {
		return Action{}, fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
	if len(parts[1]) != 1 {
		return Action{}, fmt.Errorf("%w: piece %q", ErrInvalidAction, parts[1])
	}
	kind, ok := position.ParseKind(parts[1][0])
	if !ok {
		return Action{}, fmt.Errorf("%w: piece %q", ErrInvalidAction, parts[1])
	}
	dst, err := position.ParseSquare(parts[3])
	if err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	var a Action
	switch ActionKind(strings.ToLower(parts[0])) {
	case ActionMove:
		src, err := position.ParseSquare(parts[2])
		if err != nil {
			return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		a = Move(kind, src, dst)
	case ActionDrop:
		slot, err := strconv.Atoi(parts[2])
		if err != nil {
			return Action{}, fmt.Errorf("%w: reserve slot %q", ErrInvalidAction, parts[2])
		}
		a = Drop(kind, player, slot, dst)
	default:
		return Action{}, fmt.Errorf("%w: action %q", ErrInvalidAction, parts[0])
	}
	return a, a.Validate()
}
