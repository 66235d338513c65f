// Package httpapi exposes a game.Engine as a JSON service on fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/engine/remote"
	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
	"github.com/park285/yokai-board/pkg/wire"
)

type Handler struct {
	engine game.Engine
	name   string
	log    *zap.Logger
	// callTimeout bounds valid and play; search uses searchTimeout.
	callTimeout   time.Duration
	searchTimeout time.Duration
	token         string
}

type Option func(*Handler)

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

func WithTimeouts(call, search time.Duration) Option {
	return func(h *Handler) {
		if call > 0 {
			h.callTimeout = call
		}
		if search > 0 {
			h.searchTimeout = search
		}
	}
}

// WithToken requires every engine call to carry token as a bearer token. Health stays open.
func WithToken(token string) Option {
	return func(h *Handler) { h.token = token }
}

// New builds a handler; name is reported by the health route.
func New(engine game.Engine, name string, opts ...Option) *Handler {
	h := &Handler{
		engine:        engine,
		name:          name,
		log:           obslog.L(),
		callTimeout:   5 * time.Second,
		searchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve is the fasthttp.RequestHandler.
func (h *Handler) Serve(ctx *fasthttp.RequestCtx) {
	started := time.Now()
	path := string(ctx.Path())
	switch path {
	case remote.PathHealth:
		writeJSON(ctx, fasthttp.StatusOK, wire.HealthResponse{Status: "ok", Engine: h.name})
		return
	case remote.PathValid, remote.PathPlay, remote.PathSearch:
	default:
		writeError(ctx, fasthttp.StatusNotFound, wire.DomainError{Code: wire.CodeBadRequest, Message: "unknown route " + path})
		return
	}
	if !wire.Authorized(string(ctx.Request.Header.Peek(wire.AuthorizationHeader)), h.token) {
		h.log.Warn("engine_api_unauthorized", zap.String("path", path), zap.String("remote", ctx.RemoteAddr().String()))
		writeError(ctx, fasthttp.StatusUnauthorized, wire.DomainError{Code: wire.CodeUnauthorized, Message: "bearer token required"})
		return
	}
	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, wire.DomainError{Code: wire.CodeBadRequest, Message: "POST required"})
		return
	}

	var req wire.EngineRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, wire.DomainError{Code: wire.CodeBadRequest, Message: "decode request: " + err.Error()})
		return
	}
	pos := game.Position{Board: req.Board, Reserve0: req.Reserve0, Reserve1: req.Reserve1}
	if err := pos.Validate(); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, wire.DomainError{Code: wire.CodeMalformedPosition, Message: err.Error()})
		return
	}
	player := position.Side(req.Player)
	if req.Player < 0 || !player.Valid() {
		writeError(ctx, fasthttp.StatusBadRequest, wire.DomainError{Code: wire.CodeBadRequest, Message: "player must be 0 or 1"})
		return
	}

	timeout := h.callTimeout
	if path == remote.PathSearch {
		timeout = h.searchTimeout
	}
	callCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		body any
		err  error
	)
	switch path {
	case remote.PathValid, remote.PathPlay:
		var a game.Action
		a, err = game.ParseAction(req.Action, player)
		if err != nil {
			break
		}
		if path == remote.PathValid {
			var ok bool
			ok, err = h.engine.Valid(callCtx, pos, player, a)
			body = wire.ValidResponse{Legal: ok}
		} else {
			var next game.Position
			next, err = h.engine.Play(callCtx, pos, player, a)
			body = wire.PositionResponse{Board: next.Board, Reserve0: next.Reserve0, Reserve1: next.Reserve1, Moved: true}
		}
	case remote.PathSearch:
		next, moved, serr := h.engine.Search(callCtx, pos, player, req.Depth)
		err = serr
		body = wire.PositionResponse{Board: next.Board, Reserve0: next.Reserve0, Reserve1: next.Reserve1, Moved: moved}
	}
	if err != nil {
		code, de := classify(err)
		h.log.Warn("engine_api_error", zap.String("path", path), zap.Int("status", code), zap.Error(err))
		writeError(ctx, code, de)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, body)
	h.log.Debug("engine_api_served", zap.String("path", path), zap.Duration("elapsed", time.Since(started)))
}

func classify(err error) (int, wire.DomainError) {
	switch {
	case errors.Is(err, game.ErrInvalidAction):
		return fasthttp.StatusUnprocessableEntity, wire.DomainError{Code: wire.CodeInvalidAction, Message: err.Error()}
	case errors.Is(err, position.ErrMalformedPosition):
		return fasthttp.StatusBadRequest, wire.DomainError{Code: wire.CodeMalformedPosition, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout, wire.DomainError{Code: wire.CodeEngineUnavailable, Message: err.Error(), Retryable: true}
	}
	return fasthttp.StatusServiceUnavailable, wire.DomainError{Code: wire.CodeEngineUnavailable, Message: err.Error(), Retryable: true}
}

func writeError(ctx *fasthttp.RequestCtx, status int, de wire.DomainError) {
	writeJSON(ctx, status, de)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		ctx.Error("encode response", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(payload)
}

// NewServer wraps the handler in a fasthttp.Server.
func (h *Handler) NewServer() *fasthttp.Server {
	return &fasthttp.Server{
		Handler:      h.Serve,
		Name:         h.name,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: h.searchTimeout + 5*time.Second,
	}
}
