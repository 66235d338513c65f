// Package board holds the structural view of a position: squares, reserves, UI markers and input
// flags. It performs no legality checks.
package board

import (
	"github.com/park285/yokai-board/internal/position"
)

// MarkerKind names a highlight style. Markers have no gameplay effect.
type MarkerKind string

const (
	MarkerSelected  MarkerKind = "selected"
	MarkerDropHover MarkerKind = "drop_hover"
	MarkerLastMove  MarkerKind = "last_move"
)

type Marker struct {
	Index int        `json:"index"`
	Kind  MarkerKind `json:"kind"`
}

type State struct {
	squares  [position.Squares]position.Piece
	reserve0 [position.ReserveSize]position.Piece
	reserve1 [position.ReserveSize]position.Piece
	markers  []Marker

	orientation         position.Side
	inputEnabled        [2]bool
	squareSelectEnabled bool
}

func New() *State { return &State{} }

func (s *State) SetPiece(index int, p position.Piece) {
	if index < 0 || index >= position.Squares {
		return
	}
	s.squares[index] = p
}

func (s *State) Piece(index int) position.Piece {
	if index < 0 || index >= position.Squares {
		return position.Piece{}
	}
	return s.squares[index]
}

func (s *State) reserve(side position.Side) *[position.ReserveSize]position.Piece {
	if side == position.Side1 {
		return &s.reserve1
	}
	return &s.reserve0
}

func (s *State) SetReservePiece(side position.Side, slot int, p position.Piece) {
	if slot < 0 || slot >= position.ReserveSize {
		return
	}
	s.reserve(side)[slot] = p
}

func (s *State) ReservePiece(side position.Side, slot int) position.Piece {
	if slot < 0 || slot >= position.ReserveSize {
		return position.Piece{}
	}
	return s.reserve(side)[slot]
}

func (s *State) AddMarker(index int, kind MarkerKind) {
	s.markers = append(s.markers, Marker{Index: index, Kind: kind})
}

// MarkerFilter narrows RemoveMarkers. Filters combine with AND.
type MarkerFilter func(*markerQuery)

type markerQuery struct {
	index    int
	hasIndex bool
	kind     MarkerKind
	hasKind  bool
}

func AtIndex(index int) MarkerFilter {
	return func(q *markerQuery) { q.index, q.hasIndex = index, true }
}

func OfKind(kind MarkerKind) MarkerFilter {
	return func(q *markerQuery) { q.kind, q.hasKind = kind, true }
}

// RemoveMarkers deletes every marker matching all filters; with no filters it clears them all.
func (s *State) RemoveMarkers(filters ...MarkerFilter) {
	var q markerQuery
	for _, f := range filters {
		f(&q)
	}
	kept := s.markers[:0]
	for _, m := range s.markers {
		match := (!q.hasIndex || m.Index == q.index) && (!q.hasKind || m.Kind == q.kind)
		if !match {
			kept = append(kept, m)
		}
	}
	s.markers = kept
}

func (s *State) Markers() []Marker {
	return append([]Marker(nil), s.markers...)
}

// Load replaces squares and reserves with a decoded fragment. Markers and flags are kept.
func (s *State) Load(f position.Fragment) {
	s.squares = f.Squares
	s.reserve0 = f.Reserve0
	s.reserve1 = f.Reserve1
}

func (s *State) Export() position.Fragment {
	return position.Fragment{Squares: s.squares, Reserve0: s.reserve0, Reserve1: s.reserve1}
}

func (s *State) SetPosition(text string) { s.Load(position.Decode(text)) }

func (s *State) Position() string { return position.Encode(s.Export()) }

func (s *State) Orientation() position.Side        { return s.orientation }
func (s *State) SetOrientation(side position.Side) { s.orientation = side }

func (s *State) InputEnabled(side position.Side) bool {
	if !side.Valid() {
		return false
	}
	return s.inputEnabled[side]
}

func (s *State) SetInputEnabled(side position.Side, enabled bool) {
	if !side.Valid() {
		return
	}
	s.inputEnabled[side] = enabled
}

func (s *State) DisableInput() { s.inputEnabled = [2]bool{} }

func (s *State) SquareSelectEnabled() bool           { return s.squareSelectEnabled }
func (s *State) SetSquareSelectEnabled(enabled bool) { s.squareSelectEnabled = enabled }

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.markers = s.Markers()
	return &c
}
