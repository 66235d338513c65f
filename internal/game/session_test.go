package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/board"
	"github.com/park285/yokai-board/internal/position"
)

func newTestSession(t *testing.T, eng Engine, opts ...SessionOption) *Session {
	t.Helper()
	opts = append([]SessionOption{WithLogger(zap.NewNop())}, opts...)
	s, err := NewSession(eng, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestNewSession_SeedsHistoryAndView(t *testing.T) {
	s := newTestSession(t, &stubEngine{})
	if s.ID() == "" {
		t.Fatalf("session id must be set")
	}
	if s.History().Len() != 1 {
		t.Fatalf("history must hold the start snapshot, len=%d", s.History().Len())
	}
	first, _ := s.History().At(0)
	if first.Origin != OriginStart || first.Board != DefaultBoard {
		t.Fatalf("unexpected start snapshot %+v", first)
	}
	if got := s.View().Position(); got != "TKB/.P./.p./bkt/......./......." {
		t.Fatalf("view position %q", got)
	}
	if !s.InputEnabled(position.Side0) || s.InputEnabled(position.Side1) {
		t.Fatalf("only side0 input should be enabled")
	}
	if p := s.PieceAt(Square(1)); p != position.LeaderOf(position.Side0) {
		t.Fatalf("b1 should hold the side0 leader, got %s", p)
	}
}

func TestSession_PlayCommitsAndRecords(t *testing.T) {
	next := Position{Board: "TKB....P.bkt", Reserve1: "p"}
	s := newTestSession(t, &stubEngine{legal: true, next: next})
	ok, err := s.Play(context.Background(), pawnPush)
	if err != nil || !ok {
		t.Fatalf("play: ok=%v err=%v", ok, err)
	}
	if s.CurrentPlayer() != position.Side1 {
		t.Fatalf("player must flip")
	}
	last, _ := s.History().Last()
	if last.Origin != OriginHuman || last.Action == nil || *last.Action != pawnPush || last.Seq != 1 {
		t.Fatalf("unexpected last snapshot %+v", last)
	}
	if s.Configuration().Position() != next {
		t.Fatalf("configuration snapshot mismatch")
	}
	if s.InputEnabled(position.Side0) || !s.InputEnabled(position.Side1) {
		t.Fatalf("input must follow the side to move")
	}
	var lastMove []int
	for _, m := range s.View().Markers() {
		if m.Kind == board.MarkerLastMove {
			lastMove = append(lastMove, m.Index)
		}
	}
	if len(lastMove) != 2 || lastMove[0] != 4 || lastMove[1] != 7 {
		t.Fatalf("last move markers: %v", lastMove)
	}
}

func TestSession_IllegalPlayKeepsEverything(t *testing.T) {
	s := newTestSession(t, &stubEngine{legal: false})
	before := s.View().Position()
	ok, err := s.Play(context.Background(), pawnPush)
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if s.View().Position() != before || s.History().Len() != 1 {
		t.Fatalf("illegal move changed session")
	}
	if !s.InputEnabled(position.Side0) {
		t.Fatalf("input must be re-enabled after a rejected move")
	}
}

func TestSession_BusyWhileEngineRuns(t *testing.T) {
	eng := &stubEngine{
		moved:   true,
		next:    Position{Board: "TKB....P.bkt", Reserve1: "p"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newTestSession(t, eng)

	done := make(chan error, 1)
	go func() { done <- s.EngineTurn(context.Background()) }()

	select {
	case <-eng.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("engine call did not start")
	}
	if !s.Busy() {
		t.Fatalf("session must report busy")
	}
	if s.InputEnabled(position.Side0) || s.InputEnabled(position.Side1) {
		t.Fatalf("input must be disabled while the engine runs")
	}
	if _, err := s.Play(context.Background(), pawnPush); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := s.EngineTurn(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for a second engine call, got %v", err)
	}
	if s.View().Position() != "TKB/.P./.p./bkt/......./......." {
		t.Fatalf("view must not change before the engine returns")
	}

	close(eng.release)
	if err := <-done; err != nil {
		t.Fatalf("engine turn: %v", err)
	}
	if s.Busy() || s.CurrentPlayer() != position.Side1 || !s.InputEnabled(position.Side1) {
		t.Fatalf("session did not settle after the engine move")
	}
	last, _ := s.History().Last()
	if last.Origin != OriginEngine {
		t.Fatalf("expected engine snapshot, got %s", last.Origin)
	}
}

func TestSession_GameOverAndTurnOwnership(t *testing.T) {
	won := Position{Board: "T.B.P..p.b.t", Reserve1: "k"}
	s := newTestSession(t, &stubEngine{legal: true}, WithStart(won, position.Side1))
	if w, over := s.Winner(); !over || w != position.Side0 {
		t.Fatalf("expected side0 winner, got (%s, %v)", w, over)
	}
	if s.InputEnabled(position.Side0) || s.InputEnabled(position.Side1) {
		t.Fatalf("input must be disabled once decided")
	}
	if _, err := s.Play(context.Background(), pawnPush); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}

	c := newTestSession(t, &stubEngine{legal: true}, WithComputer(position.Side0, 2))
	if _, err := c.Play(context.Background(), pawnPush); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if c.InputEnabled(position.Side0) {
		t.Fatalf("engine-controlled side must not take input")
	}
}

func TestSession_NoEngineMoveKeepsTurn(t *testing.T) {
	s := newTestSession(t, &stubEngine{moved: false}, WithComputer(position.Side0, 1))
	if err := s.Advance(context.Background()); !errors.Is(err, ErrNoEngineMove) {
		t.Fatalf("expected ErrNoEngineMove, got %v", err)
	}
	if s.CurrentPlayer() != position.Side0 || s.History().Len() != 1 {
		t.Fatalf("no-move search must not advance the game")
	}
}

func TestSession_RejectsMalformedStart(t *testing.T) {
	_, err := NewSession(nil, WithLogger(zap.NewNop()), WithStart(Position{Board: "xyz"}, position.Side0))
	if !errors.Is(err, position.ErrMalformedPosition) {
		t.Fatalf("expected ErrMalformedPosition, got %v", err)
	}
}

func TestSession_ViewFlags(t *testing.T) {
	s := newTestSession(t, &stubEngine{legal: true, next: Position{Board: "TKB....P.bkt", Reserve1: "p"}},
		WithOrientation(position.Side1), WithComputer(position.Side1, 1))
	v := s.View()
	if v.Orientation() != position.Side1 {
		t.Fatalf("orientation: %s", v.Orientation())
	}
	if !v.SquareSelectEnabled() {
		t.Fatalf("square selection must be on for the human side to move")
	}
	if _, err := s.Play(context.Background(), pawnPush); err != nil {
		t.Fatalf("play: %v", err)
	}
	if s.View().SquareSelectEnabled() {
		t.Fatalf("square selection must be off while the computer is to move")
	}
}
