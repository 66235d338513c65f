package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/park285/yokai-board/internal/position"
)

// stubEngine answers every call with canned values and counts calls.
type stubEngine struct {
	mu      sync.Mutex
	legal   bool
	next    Position
	moved   bool
	err     error
	valid   int
	played  int
	search  int
	started chan struct{}
	release chan struct{}
}

func (e *stubEngine) Valid(_ context.Context, _ Position, _ position.Side, _ Action) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.valid++
	return e.legal, e.err
}

func (e *stubEngine) Play(_ context.Context, pos Position, _ position.Side, _ Action) (Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.played++
	if e.err != nil {
		return pos, e.err
	}
	return e.next, nil
}

func (e *stubEngine) Search(ctx context.Context, pos Position, _ position.Side, _ int) (Position, bool, error) {
	e.mu.Lock()
	e.search++
	started, release := e.started, e.release
	e.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return pos, false, ctx.Err()
		}
	}
	if e.err != nil {
		return pos, false, e.err
	}
	if !e.moved {
		return pos, false, nil
	}
	return e.next, true, nil
}

var pawnPush = Move(position.Pawn, 4, 7)

func TestDefaultConfiguration(t *testing.T) {
	c := Default(&stubEngine{})
	if c.Board() != DefaultBoard || c.Reserve0Text() != "" || c.Reserve1Text() != "" {
		t.Fatalf("unexpected default %s", c)
	}
	if c.CurrentPlayer() != position.Side0 {
		t.Fatalf("expected side0 to move, got %s", c.CurrentPlayer())
	}
	if got, want := c.Text(), "TKB/.P./.p./bkt/......./......."; got != want {
		t.Fatalf("text: got %q want %q", got, want)
	}
	if _, over := c.Winner(); over {
		t.Fatalf("default position must have no winner")
	}
}

func TestRequestMove_DoesNotMutate(t *testing.T) {
	eng := &stubEngine{legal: true}
	c := Default(eng)
	before := c.Text()
	for i := 0; i < 3; i++ {
		ok, err := c.RequestMove(context.Background(), pawnPush)
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i, ok, err)
		}
	}
	if c.Text() != before || c.CurrentPlayer() != position.Side0 {
		t.Fatalf("request mutated configuration: %s", c)
	}
	if eng.played != 0 {
		t.Fatalf("request must not play, played=%d", eng.played)
	}
}

func TestRequestMove_MalformedActionIsIllegal(t *testing.T) {
	eng := &stubEngine{legal: true}
	c := Default(eng)
	ok, err := c.RequestMove(context.Background(), Action{Kind: ActionMove, Piece: 'X'})
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if eng.valid != 0 {
		t.Fatalf("engine must not be asked about malformed actions")
	}
}

func TestCommitMove_IllegalLeavesStateIdentical(t *testing.T) {
	eng := &stubEngine{legal: false}
	c := Default(eng)
	before := *c
	ok, err := c.CommitMove(context.Background(), pawnPush)
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
	if *c != before {
		t.Fatalf("illegal commit changed state: %s", c)
	}
	if eng.played != 0 {
		t.Fatalf("illegal move reached Play")
	}
}

func TestCommitMove_LegalRefreshesAndFlips(t *testing.T) {
	next := Position{Board: "TKB....P.bkt", Reserve1: "p"}
	c := Default(&stubEngine{legal: true, next: next})
	ok, err := c.CommitMove(context.Background(), pawnPush)
	if err != nil || !ok {
		t.Fatalf("commit: ok=%v err=%v", ok, err)
	}
	if c.Position() != next {
		t.Fatalf("position: got %s want %s", c.Position(), next)
	}
	if c.CurrentPlayer() != position.Side1 {
		t.Fatalf("player must flip, got %s", c.CurrentPlayer())
	}
}

func TestCommitMove_EngineFailureIsUnavailable(t *testing.T) {
	c := Default(&stubEngine{legal: true, err: errors.New("boom")})
	before := *c
	_, err := c.CommitMove(context.Background(), pawnPush)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
	if *c != before {
		t.Fatalf("failed commit changed state")
	}
}

func TestCommitMove_MalformedEngineAnswer(t *testing.T) {
	c := Default(&stubEngine{legal: true, next: Position{Board: "TKB"}})
	before := *c
	_, err := c.CommitMove(context.Background(), pawnPush)
	if !errors.Is(err, ErrEngineUnavailable) || !errors.Is(err, position.ErrMalformedPosition) {
		t.Fatalf("expected unavailable+malformed, got %v", err)
	}
	if *c != before {
		t.Fatalf("malformed answer changed state")
	}
}

func TestCommitMove_NilEngine(t *testing.T) {
	c := Default(nil)
	if _, err := c.CommitMove(context.Background(), pawnPush); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestRefresh_AllOrNothing(t *testing.T) {
	c := Default(nil)
	before := *c
	bad := []Position{
		{Board: "TKB.P..p.bk", Reserve0: "", Reserve1: ""},
		{Board: DefaultBoard, Reserve0: "PPPPPPPP"},
		{Board: DefaultBoard, Reserve1: "p.p"},
		{Board: "TKB.X..p.bkt"},
	}
	for _, pos := range bad {
		if err := c.Refresh(pos); !errors.Is(err, position.ErrMalformedPosition) {
			t.Fatalf("refresh %s: expected ErrMalformedPosition, got %v", pos, err)
		}
		if *c != before {
			t.Fatalf("refresh %s mutated state", pos)
		}
	}
	if err := c.Refresh(Position{Board: DefaultBoard, Reserve0: "B"}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Reserve0Text() != "B" || c.CurrentPlayer() != position.Side1 {
		t.Fatalf("refresh did not apply: %s player=%s", c, c.CurrentPlayer())
	}
}

func TestRequestEngineMove(t *testing.T) {
	next := Position{Board: "TKB....P.bkt", Reserve1: "p"}
	c := Default(&stubEngine{moved: true, next: next})
	if err := c.RequestEngineMove(context.Background(), 3); err != nil {
		t.Fatalf("engine move: %v", err)
	}
	if c.Position() != next || c.CurrentPlayer() != position.Side1 {
		t.Fatalf("unexpected state %s player=%s", c, c.CurrentPlayer())
	}
}

func TestRequestEngineMove_NoMoveKeepsPlayer(t *testing.T) {
	c := Default(&stubEngine{moved: false})
	before := *c
	if err := c.RequestEngineMove(context.Background(), 3); !errors.Is(err, ErrNoEngineMove) {
		t.Fatalf("expected ErrNoEngineMove, got %v", err)
	}
	if *c != before {
		t.Fatalf("no-move search changed state")
	}
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name     string
		r0, r1   string
		want     position.Side
		wantOver bool
	}{
		{name: "none", r0: "", r1: ""},
		{name: "side1 leader trailing in reserve1", r1: "pk", want: position.Side0, wantOver: true},
		{name: "side0 leader trailing in reserve0", r0: "BK", want: position.Side1, wantOver: true},
		{name: "leader not trailing", r1: "kp"},
		{name: "wrong case", r0: "k", r1: "K"},
		{name: "both, side0 checked first", r0: "K", r1: "k", want: position.Side0, wantOver: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConfiguration(nil, Position{Board: DefaultBoard, Reserve0: tt.r0, Reserve1: tt.r1}, position.Side0)
			if err != nil {
				t.Fatalf("new configuration: %v", err)
			}
			got, over := c.Winner()
			if over != tt.wantOver || (over && got != tt.want) {
				t.Fatalf("winner: got (%s, %v) want (%s, %v)", got, over, tt.want, tt.wantOver)
			}
		})
	}
}

func TestParseActionRoundTrip(t *testing.T) {
	tests := []struct {
		raw    string
		player position.Side
		want   Action
	}{
		{raw: "move P b2 b3", player: position.Side0, want: Move(position.Pawn, 4, 7)},
		{raw: "drop B 1 c2", player: position.Side1, want: Drop(position.Bishop, position.Side1, 1, 5)},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.raw, tt.player)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("parse %q: got %+v want %+v", tt.raw, got, tt.want)
		}
		if got.String() != tt.raw {
			t.Fatalf("string: got %q want %q", got.String(), tt.raw)
		}
	}
	for _, raw := range []string{"", "move P b2", "jump P b2 b3", "move X b2 b3", "move P z9 b3", "drop P x b3"} {
		if _, err := ParseAction(raw, position.Side0); !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("parse %q: expected ErrInvalidAction, got %v", raw, err)
		}
	}
}
