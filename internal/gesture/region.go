package gesture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

const (
	squarePrefix = "sq-"
	segmentSep   = "/"
)

// SquareID names the region of a board square, e.g. "sq-b2".
func SquareID(index int) string { return squarePrefix + position.SquareName(index) }

// ReserveID names a reserve slot region, e.g. "r0-3".
func ReserveID(side position.Side, slot int) string { return fmt.Sprintf("r%d-%d", side, slot) }

// RegionID names the region of any locator.
func RegionID(l game.Locator) string {
	if l.IsSquare() {
		return SquareID(l.Index)
	}
	side, _ := l.ReserveSide()
	return ReserveID(side, l.Index)
}

// PieceID names the element of a piece standing in a region, e.g. "sq-b2/P".
func PieceID(region string, p position.Piece) string {
	return region + segmentSep + string(p.Char())
}

// ParseRegion parses a bare region id.
func ParseRegion(id string) (game.Locator, bool) {
	if name, ok := strings.CutPrefix(id, squarePrefix); ok {
		idx, err := position.ParseSquare(name)
		if err != nil || position.SquareName(idx) != name {
			return game.Locator{}, false
		}
		return game.Square(idx), true
	}
	if len(id) < 4 || id[0] != 'r' || id[2] != '-' || (id[1] != '0' && id[1] != '1') {
		return game.Locator{}, false
	}
	side := position.Side(id[1] - '0')
	slot, err := strconv.Atoi(id[3:])
	if err != nil || slot < 0 || slot >= position.ReserveSize || strconv.Itoa(slot) != id[3:] {
		return game.Locator{}, false
	}
	return game.ReserveSlot(side, slot), true
}

// Resolve finds the nearest droppable ancestor of an element id by dropping trailing segments.
// Only board squares are droppable.
func Resolve(id string) (game.Locator, bool) {
	for {
		if l, ok := ParseRegion(id); ok {
			return l, l.IsSquare()
		}
		i := strings.LastIndex(id, segmentSep)
		if i < 0 {
			return game.Locator{}, false
		}
		id = id[:i]
	}
}

// splitPieceID separates the region of a piece element id from its piece letter, if any.
func splitPieceID(id string) (region string, char byte, hasChar bool) {
	region, rest, found := strings.Cut(id, segmentSep)
	if !found || rest == "" {
		return region, 0, false
	}
	if i := strings.Index(rest, segmentSep); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) != 1 {
		return region, 0, false
	}
	return region, rest[0], true
}
