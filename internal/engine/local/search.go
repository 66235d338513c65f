package local

import (
	"context"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

const (
	winScore = 1 << 20
	// ctxCheckEvery is how many nodes pass between context checks.
	ctxCheckEvery = 1024
)

var pieceValue = map[position.Kind]int{
	position.King:      0,
	position.Tower:     5,
	position.Bishop:    3,
	position.Pawn:      1,
	position.SuperPawn: 4,
}

// evaluate scores s for side. Pieces on the board count double; reserve pieces still count since
// their owner may drop them back.
func evaluate(s state, side position.Side) int {
	score := 0
	for _, p := range s.squares {
		if p.IsZero() {
			continue
		}
		v := 2 * pieceValue[p.Kind]
		if p.Owner == side {
			score += v
		} else {
			score -= v
		}
	}
	for owner, r := range s.reserves {
		for _, p := range r {
			v := pieceValue[p.Kind]
			if position.Side(owner) == side {
				score += v
			} else {
				score -= v
			}
		}
	}
	return score
}

type searcher struct {
	ctx   context.Context
	nodes int
}

// root runs an alpha-beta negamax and returns the best action. Ties keep the earliest action in
// generation order.
func (sr *searcher) root(s state, player position.Side, depth int) (game.Action, bool, error) {
	actions := s.actions(player)
	if len(actions) == 0 {
		return game.Action{}, false, nil
	}
	best := actions[0]
	alpha, beta := -winScore-1, winScore+1
	for _, a := range actions {
		v, err := sr.negamax(s.apply(player, a), player.Opponent(), depth-1, 1, -beta, -alpha)
		if err != nil {
			return game.Action{}, false, err
		}
		v = -v
		if v > alpha {
			alpha = v
			best = a
		}
	}
	return best, true, nil
}

func (sr *searcher) negamax(s state, side position.Side, depth, ply, alpha, beta int) (int, error) {
	sr.nodes++
	if sr.nodes%ctxCheckEvery == 0 {
		if err := sr.ctx.Err(); err != nil {
			return 0, err
		}
	}
	if w, over := s.winner(); over {
		// Prefer faster wins and slower losses.
		if w == side {
			return winScore - ply, nil
		}
		return -winScore + ply, nil
	}
	if depth <= 0 {
		return evaluate(s, side), nil
	}
	actions := s.actions(side)
	if len(actions) == 0 {
		return evaluate(s, side), nil
	}
	for _, a := range actions {
		v, err := sr.negamax(s.apply(side, a), side.Opponent(), depth-1, ply+1, -beta, -alpha)
		if err != nil {
			return 0, err
		}
		v = -v
		if v >= beta {
			return v, nil
		}
		if v > alpha {
			alpha = v
		}
	}
	return alpha, nil
}
