package pipe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/engine/local"
	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
)

const helperEnv = "YOKAI_PIPE_HELPER"

// TestHelperProcess is the engine subprocess used by the pool tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	_ = Serve(context.Background(), os.Stdin, os.Stdout, local.New(local.WithLogger(zap.NewNop())), nil)
	os.Exit(0)
}

func helperProcess() Process {
	return Process{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$"},
		Env:  []string{helperEnv + "=1"},
	}
}

var start = game.Position{Board: game.DefaultBoard}

func TestRequestRoundTrip(t *testing.T) {
	pos := game.Position{Board: "TKB....P.bkt", Reserve1: "p"}
	a := game.Drop(position.Pawn, position.Side1, 0, 4)
	line := buildValid(pos, position.Side1, a)
	if line != "valid TKB....P.bkt . p 1 drop P 0 b2\n" {
		t.Fatalf("unexpected request %q", line)
	}
	req, err := parseRequest(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.cmd != cmdValid || req.pos != pos || req.player != position.Side1 || req.action != a {
		t.Fatalf("unexpected request %+v", req)
	}

	req, err = parseRequest(buildSearch(start, position.Side0, 5))
	if err != nil || req.depth != 5 || req.pos != start {
		t.Fatalf("search request %+v %v", req, err)
	}

	for _, bad := range []string{
		"valid TKB . . 0 move P b2 b3",
		"play TKB.P..p.bkt . . 2 move P b2 b3",
		"search TKB.P..p.bkt . . 0 deep",
		"play TKB.P..p.bkt . .",
	} {
		if _, err := parseRequest(bad); err == nil {
			t.Fatalf("parse %q: expected error", bad)
		}
	}
}

func TestServe(t *testing.T) {
	in := strings.Join([]string{
		"yokai",
		"isready",
		"valid TKB.P..p.bkt . . 0 move P b2 b3",
		"valid TKB.P..p.bkt . . 0 move P b2 a2",
		"play TKB.P..p.bkt . . 0 move P b2 b3",
		"play TKB.P..p.bkt . . 0 move P b2 a2",
		"search T.B.P..p.b.t . k 1 3",
		"bogus",
		"quit",
		"isready",
	}, "\n")
	var out bytes.Buffer
	eng := local.New(local.WithLogger(zap.NewNop()))
	if err := Serve(context.Background(), strings.NewReader(in), &out, eng, zap.NewNop()); err != nil {
		t.Fatalf("serve: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"id name " + Name,
		tokHello,
		tokReady,
		"ok 1",
		"ok 0",
		"position TKB....P.bkt . p",
	}
	if len(lines) != len(want)+3 {
		t.Fatalf("unexpected reply count %d: %q", len(lines), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("reply %d: got %q want %q", i, lines[i], w)
		}
	}
	if !strings.HasPrefix(lines[6], "error invalid_action") {
		t.Fatalf("illegal play must answer an error, got %q", lines[6])
	}
	if lines[7] != tokNone {
		t.Fatalf("decided position must answer none, got %q", lines[7])
	}
	if !strings.HasPrefix(lines[8], "error ") {
		t.Fatalf("unknown command must answer an error, got %q", lines[8])
	}
}

func TestEngineOverSubprocess(t *testing.T) {
	eng, err := NewEngine(PoolConfig{Process: helperProcess(), Capacity: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer eng.Close()
	ctx := context.Background()

	ok, err := eng.Valid(ctx, start, position.Side0, game.Move(position.Pawn, 4, 7))
	if err != nil || !ok {
		t.Fatalf("valid: ok=%v err=%v", ok, err)
	}
	next, err := eng.Play(ctx, start, position.Side0, game.Move(position.Pawn, 4, 7))
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if want := (game.Position{Board: "TKB....P.bkt", Reserve1: "p"}); next != want {
		t.Fatalf("play: got %s want %s", next, want)
	}
	moved, searched, err := eng.Search(ctx, next, position.Side1, 2)
	if err != nil || !searched {
		t.Fatalf("search: moved=%v err=%v", searched, err)
	}
	if moved.Validate() != nil || moved == next {
		t.Fatalf("search returned %s", moved)
	}
	if eng.Pool().Size() != 1 {
		t.Fatalf("pool must reuse its single process, size=%d", eng.Pool().Size())
	}

	if _, err := eng.Play(ctx, start, position.Side0, game.Move(position.Pawn, 4, 3)); !errors.Is(err, ErrProtocol) {
		t.Fatalf("illegal play must surface the engine error, got %v", err)
	}
}

func TestPoolDiscardsFailedSession(t *testing.T) {
	pool, err := NewPool(PoolConfig{Process: helperProcess(), Capacity: 2}, zap.NewNop())
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	defer pool.Close()
	ctx := context.Background()

	s1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	s2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if pool.Size() != 2 {
		t.Fatalf("size: %d", pool.Size())
	}
	pool.Release(s1, nil)
	pool.Release(s2, errors.New("read timeout"))
	if pool.Size() != 1 {
		t.Fatalf("failed session must be dropped, size=%d", pool.Size())
	}
	again, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if again != s1 {
		t.Fatalf("idle session must be reused")
	}
	pool.Release(again, nil)
}

func TestNewPoolRejectsMissingBinary(t *testing.T) {
	if _, err := NewPool(PoolConfig{Process: Process{Path: "/nonexistent/yokai-engine"}}, nil); err == nil {
		t.Fatalf("expected an error for a missing binary")
	}
}
