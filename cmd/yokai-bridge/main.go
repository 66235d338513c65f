package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/bridge"
	"github.com/park285/yokai-board/internal/builder"
	appcfg "github.com/park285/yokai-board/internal/config"
	"github.com/park285/yokai-board/internal/msgcat"
	"github.com/park285/yokai-board/internal/obslog"
)

func main() {
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

	deps, err := builder.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("engine init error: %v", err)
	}
	defer deps.Close()

	catalog, err := msgcat.New(cfg.Bridge.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}
	sessionOpts, err := builder.SessionOptions(cfg)
	if err != nil {
		log.Fatalf("session options error: %v", err)
	}

	srv := bridge.NewServer(deps.Engine,
		bridge.WithLogger(logger),
		bridge.WithCatalog(catalog),
		bridge.WithSessionOptions(sessionOpts...),
		bridge.WithTurnTimeout(cfg.Engine.SearchTimeout),
		bridge.WithToken(cfg.Bridge.Token),
	)

	mux := http.NewServeMux()
	mux.Handle(bridge.Path, srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","engine":"` + deps.Kind + `"}`))
	})

	httpSrv := &http.Server{
		Addr:              cfg.Bridge.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("bridge_listening", zap.String("addr", cfg.Bridge.Listen), zap.String("config", cfg.Source))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("bridge server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("bridge_shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("bridge_shutdown_failed", zap.Error(err))
	}
	srv.Wait()
}
