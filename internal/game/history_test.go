package game

import (
	"testing"

	"github.com/park285/yokai-board/internal/position"
)

func TestHistory_PastEntriesCannotBeRewritten(t *testing.T) {
	h := NewHistory()
	h.Record(Snapshot{Board: DefaultBoard, Origin: OriginStart})
	a := Move(position.Pawn, 4, 7)
	recorded := h.Record(Snapshot{Board: "TKB....P.bkt", Reserve1: "p", Player: position.Side1, Origin: OriginHuman, Action: &a})

	a.Destination = Square(0)
	recorded.Action.Destination = Square(1)

	got := h.Entries()
	got[1].Action.Destination = Square(2)
	got[1].Board = "changed"
	at, _ := h.At(1)
	at.Action.Source = Square(3)
	last, _ := h.Last()
	last.Action.Piece = position.Leader

	for name, read := range map[string]func() (Snapshot, bool){
		"At":   func() (Snapshot, bool) { return h.At(1) },
		"Last": h.Last,
		"Entries": func() (Snapshot, bool) {
			all := h.Entries()
			return all[1], len(all) == 2
		},
	} {
		s, ok := read()
		if !ok {
			t.Fatalf("%s: entry missing", name)
		}
		if s.Board != "TKB....P.bkt" || s.Seq != 1 {
			t.Fatalf("%s: entry changed: %+v", name, s)
		}
		if s.Action == nil || *s.Action != Move(position.Pawn, 4, 7) {
			t.Fatalf("%s: past action mutated: %v", name, s.Action)
		}
	}
}

func TestHistory_Bounds(t *testing.T) {
	h := NewHistory()
	if _, ok := h.Last(); ok {
		t.Fatalf("empty history has no last entry")
	}
	h.Record(Snapshot{Board: DefaultBoard})
	if _, ok := h.At(1); ok {
		t.Fatalf("At past the end must fail")
	}
	if _, ok := h.At(-1); ok {
		t.Fatalf("negative index must fail")
	}
	if s, ok := h.At(0); !ok || s.Seq != 0 || s.Action != nil {
		t.Fatalf("first entry: %+v", s)
	}
}
