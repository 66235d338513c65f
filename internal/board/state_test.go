package board

import (
	"testing"

	"github.com/park285/yokai-board/internal/position"
)

func TestSetPositionRoundTrip(t *testing.T) {
	s := New()
	const text = "TKB/.P./.p./bkt/Pb...../t......"
	s.SetPosition(text)
	if got := s.Position(); got != text {
		t.Fatalf("Position() = %q, want %q", got, text)
	}
	if p := s.ReservePiece(position.Side0, 1); p.Char() != 'b' {
		t.Fatalf("reserve0 slot1 = %q", p.Char())
	}
	if p := s.ReservePiece(position.Side1, 0); p.Char() != 't' {
		t.Fatalf("reserve1 slot0 = %q", p.Char())
	}
}

func TestSetGetPiece(t *testing.T) {
	s := New()
	p := position.Piece{Owner: position.Side1, Kind: position.Tower}
	s.SetPiece(5, p)
	if s.Piece(5) != p {
		t.Fatalf("Piece(5) = %+v", s.Piece(5))
	}
	s.SetPiece(12, p)
	s.SetReservePiece(position.Side0, 7, p)
	if !s.Piece(12).IsZero() || !s.ReservePiece(position.Side0, 7).IsZero() {
		t.Fatalf("out of range access must be ignored")
	}
}

func TestRemoveMarkersFilters(t *testing.T) {
	seed := func() *State {
		s := New()
		s.AddMarker(0, MarkerSelected)
		s.AddMarker(0, MarkerLastMove)
		s.AddMarker(4, MarkerSelected)
		s.AddMarker(4, MarkerDropHover)
		return s
	}

	cases := []struct {
		name    string
		filters []MarkerFilter
		want    []Marker
	}{
		{"all", nil, nil},
		{"index zero only", []MarkerFilter{AtIndex(0)}, []Marker{{4, MarkerSelected}, {4, MarkerDropHover}}},
		{"kind only", []MarkerFilter{OfKind(MarkerSelected)}, []Marker{{0, MarkerLastMove}, {4, MarkerDropHover}}},
		{"exact pair", []MarkerFilter{AtIndex(4), OfKind(MarkerSelected)}, []Marker{{0, MarkerSelected}, {0, MarkerLastMove}, {4, MarkerDropHover}}},
		{"no match", []MarkerFilter{AtIndex(9)}, []Marker{{0, MarkerSelected}, {0, MarkerLastMove}, {4, MarkerSelected}, {4, MarkerDropHover}}},
	}
	for _, tc := range cases {
		s := seed()
		s.RemoveMarkers(tc.filters...)
		got := s.Markers()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestInputFlagsAndClone(t *testing.T) {
	s := New()
	s.SetInputEnabled(position.Side0, true)
	s.AddMarker(3, MarkerSelected)
	c := s.Clone()
	s.DisableInput()
	s.RemoveMarkers()
	if s.InputEnabled(position.Side0) {
		t.Fatalf("DisableInput left side0 enabled")
	}
	if !c.InputEnabled(position.Side0) || len(c.Markers()) != 1 {
		t.Fatalf("clone shares state with original")
	}
	if s.InputEnabled(position.Side(7)) {
		t.Fatalf("invalid side must report disabled")
	}
}
