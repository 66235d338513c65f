package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/park285/yokai-board/internal/bridge"
	"github.com/park285/yokai-board/internal/builder"
	appcfg "github.com/park285/yokai-board/internal/config"
	"github.com/park285/yokai-board/internal/engine/remote"
	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/position"
	"github.com/park285/yokai-board/pkg/wire"
)

func main() {
	bridgeURL := flag.String("bridge", "", "also connect to a bridge websocket, e.g. ws://localhost:8080/ws")
	preset := flag.String("preset", "", "search preset (default: search.default_preset)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	depth, err := cfg.Depth(*preset)
	if err != nil {
		log.Fatalf("preset error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Engine.SearchTimeout+10*time.Second)
	defer cancel()

	deps, err := builder.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	defer deps.Close()
	log.Printf("engine kind=%s cache=%v", deps.Kind, deps.Redis != nil)

	if rc, ok := deps.Base.(*remote.Client); ok {
		health, err := rc.Health(ctx)
		if err != nil {
			log.Printf("/healthz error: %v", err)
		} else {
			log.Printf("/healthz ok: status=%s engine=%s", health.Status, health.Engine)
		}
	}

	start := game.Position{Board: game.DefaultBoard}
	push := game.Move(position.Pawn, 4, 7)
	ok, err := deps.Engine.Valid(ctx, start, position.Side0, push)
	if err != nil {
		log.Fatalf("valid error: %v", err)
	}
	log.Printf("valid %s -> %v", push, ok)

	next, err := deps.Engine.Play(ctx, start, position.Side0, push)
	if err != nil {
		log.Fatalf("play error: %v", err)
	}
	log.Printf("play %s -> %s", push, next.Text())

	began := time.Now()
	reply, moved, err := deps.Engine.Search(ctx, next, position.Side1, depth)
	if err != nil {
		log.Fatalf("search error: %v", err)
	}
	log.Printf("search depth=%d moved=%v elapsed=%s -> %s", depth, moved, time.Since(began), reply.Text())

	if *bridgeURL == "" {
		log.Println("-bridge not set; skipping bridge check")
		return
	}

	states := make(chan *wire.StateMessage, 8)
	client := bridge.NewClient(*bridgeURL)
	if cfg.Bridge.Token != "" {
		client.SetHeaderProvider(func() map[string]string {
			return map[string]string{wire.AuthorizationHeader: wire.Bearer(cfg.Bridge.Token)}
		})
	}
	client.OnState(func(msg *wire.StateMessage) {
		fmt.Printf("bridge state session=%s player=%d position=%s input=%v\n", msg.Session, msg.Player, msg.Position, msg.InputEnabled)
		states <- msg
	})
	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := client.Connect(cctx); err != nil {
		log.Printf("bridge connect error: %v", err)
		return
	}
	defer func() { _ = client.Close(context.Background()) }()

	select {
	case <-states:
	case <-cctx.Done():
		log.Printf("bridge sent no state: %v", cctx.Err())
		return
	}
	if err := client.Send(cctx, wire.GestureEvent{Type: wire.EventState}); err != nil {
		log.Printf("bridge send error: %v", err)
		return
	}
	select {
	case msg := <-states:
		if msg.Error != nil {
			log.Printf("bridge error: %s %s", msg.Error.Code, msg.Error.Message)
		}
	case <-cctx.Done():
		log.Printf("bridge did not answer: %v", cctx.Err())
	}
}
