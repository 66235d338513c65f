package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Run serves on ln until ctx is cancelled, then drains in-flight requests.
func (h *Handler) Run(ctx context.Context, ln net.Listener) error {
	srv := h.NewServer()
	errCh := make(chan error, 1)
	go func() {
		h.log.Info("engine_api_listening", zap.String("addr", ln.Addr().String()), zap.String("engine", h.name))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	h.log.Info("engine_api_stopped")
	return nil
}

// ListenAndRun binds addr and calls Run.
func (h *Handler) ListenAndRun(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return h.Run(ctx, ln)
}
