package local

import (
	"fmt"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

// state is a position with compact reserves, the form the rules work on.
type state struct {
	squares  [position.Squares]position.Piece
	reserves [2][]position.Piece
}

func load(pos game.Position) (state, error) {
	if err := pos.Validate(); err != nil {
		return state{}, err
	}
	var s state
	for i := 0; i < position.Squares; i++ {
		p, _ := position.PieceFromChar(pos.Board[i])
		s.squares[i] = p
	}
	for side, raw := range []string{pos.Reserve0, pos.Reserve1} {
		for i := 0; i < len(raw); i++ {
			p, _ := position.PieceFromChar(raw[i])
			s.reserves[side] = append(s.reserves[side], p)
		}
	}
	return s, nil
}

func (s state) position() game.Position {
	board := make([]byte, position.Squares)
	for i, p := range s.squares {
		board[i] = p.Char()
	}
	return game.Position{
		Board:    string(board),
		Reserve0: reserveText(s.reserves[position.Side0]),
		Reserve1: reserveText(s.reserves[position.Side1]),
	}
}

func reserveText(r []position.Piece) string {
	b := make([]byte, len(r))
	for i, p := range r {
		b[i] = p.Char()
	}
	return string(b)
}

func (s state) clone() state {
	c := s
	c.reserves[0] = append([]position.Piece(nil), s.reserves[0]...)
	c.reserves[1] = append([]position.Piece(nil), s.reserves[1]...)
	return c
}

// winner mirrors game.Position.Winner without re-encoding the position.
func (s state) winner() (position.Side, bool) {
	if r := s.reserves[position.Side1]; len(r) > 0 && r[len(r)-1] == position.LeaderOf(position.Side1) {
		return position.Side0, true
	}
	if r := s.reserves[position.Side0]; len(r) > 0 && r[len(r)-1] == position.LeaderOf(position.Side0) {
		return position.Side1, true
	}
	return 0, false
}

// forward is the row step of a side's pawns. Side0 starts on the low ranks.
func forward(side position.Side) int {
	if side == position.Side0 {
		return 1
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// reaches reports whether p may step from one square to another on an empty board.
func reaches(p position.Piece, from, to int) bool {
	dr := position.Row(to) - position.Row(from)
	dc := position.Col(to) - position.Col(from)
	if max(abs(dr), abs(dc)) != 1 {
		return false
	}
	fw := forward(p.Owner)
	switch p.Kind {
	case position.King:
		return true
	case position.Tower:
		return dr == 0 || dc == 0
	case position.Bishop:
		return dr != 0 && dc != 0
	case position.Pawn:
		return dc == 0 && dr == fw
	case position.SuperPawn:
		return dr == fw || dr == 0 || (dr == -fw && dc == 0)
	}
	return false
}

func promotionRow(side position.Side) int {
	if side == position.Side0 {
		return position.Rows - 1
	}
	return 0
}

// check reports why a is illegal for player, or nil.
func (s state) check(player position.Side, a game.Action) error {
	if _, over := s.winner(); over {
		return errGameDecided
	}
	if err := a.Validate(); err != nil {
		return err
	}
	dst := a.Destination.Index
	switch a.Kind {
	case game.ActionMove:
		src := s.squares[a.Source.Index]
		if src.IsZero() || src.Owner != player || src.Kind != a.Piece {
			return fmt.Errorf("no %s of side %s on %s", a.Piece, player, a.Source)
		}
		if t := s.squares[dst]; !t.IsZero() && t.Owner == player {
			return fmt.Errorf("%s is occupied by an own piece", a.Destination)
		}
		if !reaches(src, a.Source.Index, dst) {
			return fmt.Errorf("%s cannot reach %s from %s", a.Piece, a.Destination, a.Source)
		}
	case game.ActionDrop:
		side, _ := a.Source.ReserveSide()
		if side != player {
			return fmt.Errorf("reserve %s does not belong to side %s", a.Source, player)
		}
		r := s.reserves[player]
		if a.Source.Index >= len(r) || r[a.Source.Index].Kind != a.Piece {
			return fmt.Errorf("no %s at %s", a.Piece, a.Source)
		}
		if a.Piece == position.Leader {
			return errLeaderDrop
		}
		if !s.squares[dst].IsZero() {
			return fmt.Errorf("%s is occupied", a.Destination)
		}
	}
	return nil
}

// apply performs a checked action. A captured piece is demoted and appended to its owner's
// reserve; a pawn reaching the far row is promoted.
func (s state) apply(player position.Side, a game.Action) state {
	n := s.clone()
	dst := a.Destination.Index
	switch a.Kind {
	case game.ActionMove:
		p := n.squares[a.Source.Index]
		n.squares[a.Source.Index] = position.Piece{}
		if t := n.squares[dst]; !t.IsZero() {
			// Unlike drop shogi, the captured piece keeps its colour and returns to its owner's
			// reserve. A captured leader therefore lands in the trailing slot of its owner's
			// reserve, which is the slot Configuration.Winner reads.
			if t.Kind == position.SuperPawn {
				t.Kind = position.Pawn
			}
			if len(n.reserves[t.Owner]) < position.ReserveSize {
				n.reserves[t.Owner] = append(n.reserves[t.Owner], t)
			}
		}
		if p.Kind == position.Pawn && position.Row(dst) == promotionRow(player) {
			p.Kind = position.SuperPawn
		}
		n.squares[dst] = p
	case game.ActionDrop:
		r := n.reserves[player]
		p := r[a.Source.Index]
		n.reserves[player] = append(r[:a.Source.Index:a.Source.Index], r[a.Source.Index+1:]...)
		n.squares[dst] = p
	}
	return n
}

// actions lists the legal actions of player. Leader captures come first, then other captures,
// then quiet moves and drops; search relies on this order.
func (s state) actions(player position.Side) []game.Action {
	if _, over := s.winner(); over {
		return nil
	}
	var leaderCaps, caps, quiet []game.Action
	for from, p := range s.squares {
		if p.IsZero() || p.Owner != player {
			continue
		}
		for to := 0; to < position.Squares; to++ {
			if !reaches(p, from, to) {
				continue
			}
			t := s.squares[to]
			a := game.Move(p.Kind, from, to)
			switch {
			case t.IsZero():
				quiet = append(quiet, a)
			case t.Owner == player:
			case t.Kind == position.Leader:
				leaderCaps = append(leaderCaps, a)
			default:
				caps = append(caps, a)
			}
		}
	}
	seen := map[position.Kind]bool{}
	for slot, p := range s.reserves[player] {
		if p.Kind == position.Leader || seen[p.Kind] {
			continue
		}
		seen[p.Kind] = true
		for to, t := range s.squares {
			if t.IsZero() {
				quiet = append(quiet, game.Drop(p.Kind, player, slot, to))
			}
		}
	}
	out := append(leaderCaps, caps...)
	return append(out, quiet...)
}
