package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/builder"
	appcfg "github.com/park285/yokai-board/internal/config"
	"github.com/park285/yokai-board/internal/engine/httpapi"
	"github.com/park285/yokai-board/internal/engine/local"
	"github.com/park285/yokai-board/internal/engine/pipe"
	"github.com/park285/yokai-board/internal/obslog"
)

func main() {
	stdio := flag.Bool("stdio", false, "speak the line protocol on stdin/stdout instead of serving HTTP")
	addr := flag.String("addr", "", "HTTP listen address (overrides engine_api.listen)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	if *stdio {
		// The pipe engine spawns this process; it always searches in-process.
		eng := local.New(local.WithLogger(logger))
		if err := pipe.Serve(ctx, os.Stdin, os.Stdout, eng, logger); err != nil && ctx.Err() == nil {
			logger.Error("pipe_serve_failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	defer deps.Close()

	listen := cfg.EngineAPI.Listen
	if *addr != "" {
		listen = *addr
	}
	h := httpapi.New(deps.Engine, cfg.EngineAPI.Name,
		httpapi.WithLogger(logger),
		httpapi.WithTimeouts(cfg.Engine.CallTimeout, cfg.Engine.SearchTimeout),
		httpapi.WithToken(cfg.EngineAPI.Token),
	)
	if err := h.ListenAndRun(ctx, listen); err != nil {
		logger.Error("engine_api_failed", zap.Error(err))
		os.Exit(1)
	}
}
