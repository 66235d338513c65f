// Package bridge serves one game per websocket connection. The host UI sends gesture events and
// receives the resulting state after each of them.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/gesture"
	"github.com/park285/yokai-board/internal/msgcat"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
	"github.com/park285/yokai-board/pkg/wire"
)

// Path is where the websocket endpoint is mounted by the bridge command.
const Path = "/ws"

const (
	writeTimeout   = 5 * time.Second
	maxEngineTurns = 256
)

type Server struct {
	engine   game.Engine
	catalog  *msgcat.Catalog
	log      *zap.Logger
	session  []game.SessionOption
	origins  []string
	turnWait time.Duration
	token    string

	wg sync.WaitGroup
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithCatalog(c *msgcat.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithSessionOptions is applied to every game the server starts.
func WithSessionOptions(opts ...game.SessionOption) Option {
	return func(s *Server) { s.session = append(s.session, opts...) }
}

// WithOriginPatterns allows cross-origin browser clients matching the patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.origins = append(s.origins, patterns...) }
}

// WithTurnTimeout bounds each engine turn played on behalf of a computer side.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.turnWait = d
		}
	}
}

// WithToken makes the websocket handshake require token as a bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func NewServer(engine game.Engine, opts ...Option) *Server {
	s := &Server{engine: engine, log: obslog.L(), turnWait: 60 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !wire.Authorized(r.Header.Get(wire.AuthorizationHeader), s.token) {
		s.log.Warn("bridge_unauthorized", zap.String("remote", r.RemoteAddr))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(wire.DomainError{
			Code:    wire.CodeUnauthorized,
			Message: s.catalog.Error(wire.CodeUnauthorized, ""),
		})
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  s.origins,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("bridge_accept_failed", zap.Error(err))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	session, err := game.NewSession(s.engine, append(s.session, game.WithLogger(s.log))...)
	if err != nil {
		s.log.Error("bridge_session_failed", zap.Error(err))
		_ = c.Close(websocket.StatusInternalError, "session")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	cn := &conn{
		srv:     s,
		ws:      c,
		session: session,
		mapper:  gesture.New(session, session, gesture.WithLogger(s.log)),
		log:     s.log.With(zap.String("session", session.ID())),
	}
	cn.log.Info("bridge_connected", zap.String("remote", r.RemoteAddr))
	err = cn.run(ctx)
	cancel()
	cn.turns.Wait()
	status := websocket.CloseStatus(err)
	switch {
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		cn.log.Info("bridge_disconnected", zap.Int("moves", session.History().Len()-1))
	case errors.Is(err, context.Canceled):
		cn.log.Info("bridge_closed")
	default:
		cn.log.Warn("bridge_connection_error", zap.Error(err))
	}
	_ = c.Close(websocket.StatusNormalClosure, "")
}

// Wait blocks until every connection handler has returned.
func (s *Server) Wait() { s.wg.Wait() }

type conn struct {
	srv     *Server
	ws      *websocket.Conn
	session *game.Session
	mapper  *gesture.Mapper
	log     *zap.Logger

	writeMu sync.Mutex
	turns   sync.WaitGroup
}

func (c *conn) run(ctx context.Context) error {
	if err := c.send(ctx, nil, nil); err != nil {
		return err
	}
	c.advance(ctx)
	for {
		var ev wire.GestureEvent
		if err := wsjson.Read(ctx, c.ws, &ev); err != nil {
			return err
		}
		result, err := c.handle(ctx, ev)
		var derr *wire.DomainError
		if err != nil {
			de := c.domainError(err)
			derr = &de
		}
		if err := c.send(ctx, result, derr); err != nil {
			return err
		}
		if result != nil && result.Outcome == string(gesture.Committed) {
			c.advance(ctx)
		}
	}
}

func (c *conn) handle(ctx context.Context, ev wire.GestureEvent) (*wire.MoveResult, error) {
	switch ev.Type {
	case wire.EventPickUp:
		return nil, c.mapper.PickUp(ev.Piece, ev.Origin)
	case wire.EventEnter:
		c.mapper.HoverEnter(ev.Region)
		return nil, nil
	case wire.EventLeave:
		c.mapper.HoverLeave(ev.Region)
		return nil, nil
	case wire.EventCancel:
		c.mapper.Cancel()
		return nil, nil
	case wire.EventDrop:
		out, err := c.mapper.Drop(ctx, ev.Region)
		if err != nil && out.Kind == "" {
			return nil, err
		}
		return c.result(out), err
	case wire.EventEngine:
		if err := c.session.EngineTurn(ctx); err != nil {
			return nil, err
		}
		c.log.Debug("bridge_engine_hint_played")
		return &wire.MoveResult{Outcome: string(gesture.Committed), Reason: string(game.OriginEngine)}, nil
	case wire.EventState:
		return nil, nil
	}
	return nil, &wire.DomainError{Code: wire.CodeBadRequest, Message: "unknown event type " + ev.Type}
}

func (c *conn) result(out gesture.Outcome) *wire.MoveResult {
	r := &wire.MoveResult{Outcome: string(out.Kind), Reason: out.Reason}
	if out.Action != nil {
		r.Action = out.Action.String()
	}
	if out.Kind != gesture.Committed {
		r.Reason = c.srv.catalog.Outcome(r.Outcome, r.Action, out.Reason)
	}
	return r
}

// advance lets the engine play for computer-controlled sides in the background, one state message
// per engine move. The human sees both input flags off until it is done.
func (c *conn) advance(ctx context.Context) {
	if !c.engineToMove() {
		return
	}
	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		for i := 0; i < maxEngineTurns && c.engineToMove(); i++ {
			turnCtx, cancel := context.WithTimeout(ctx, c.srv.turnWait)
			err := c.session.EngineTurn(turnCtx)
			cancel()
			if ctx.Err() != nil {
				return
			}
			result := &wire.MoveResult{Outcome: string(gesture.Committed), Reason: string(game.OriginEngine)}
			var derr *wire.DomainError
			if err != nil {
				result = nil
				de := c.domainError(err)
				derr = &de
			}
			if serr := c.send(ctx, result, derr); serr != nil {
				c.log.Debug("bridge_send_failed", zap.Error(serr))
				return
			}
			if err != nil {
				return
			}
		}
	}()
}

func (c *conn) engineToMove() bool {
	if _, over := c.session.Winner(); over {
		return false
	}
	return c.session.Controller(c.session.CurrentPlayer()) == game.Computer
}

func (c *conn) send(ctx context.Context, result *wire.MoveResult, derr *wire.DomainError) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := c.state(result, derr)
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, c.ws, msg)
}

func (c *conn) state(result *wire.MoveResult, derr *wire.DomainError) wire.StateMessage {
	snap := c.session.Configuration()
	view := c.session.View()
	gv := c.mapper.View()

	msg := wire.StateMessage{
		Session:      c.session.ID(),
		Position:     snap.Text(),
		Player:       int(snap.Player),
		InputEnabled: [2]bool{c.session.InputEnabled(position.Side0), c.session.InputEnabled(position.Side1)},
		Orientation:  int(view.Orientation()),
		SquareSelect: view.SquareSelectEnabled(),
		Markers:      []wire.Marker{},
		Phase:        gv.Phase.String(),
		Hidden:       gv.Hidden,
		Highlighted:  gv.Highlighted,
		Moves:        c.session.History().Len() - 1,
		Result:       result,
		Error:        derr,
	}
	if side, ok := snap.Winner(); ok {
		w := int(side)
		msg.Winner = &w
	}
	msg.Status = c.srv.catalog.Status(msg.Player, msg.Winner)
	for _, m := range view.Markers() {
		msg.Markers = append(msg.Markers, wire.Marker{Index: m.Index, Kind: string(m.Kind)})
	}
	return msg
}

func (c *conn) domainError(err error) wire.DomainError {
	var de *wire.DomainError
	if errors.As(err, &de) {
		return *de
	}
	out := wire.DomainError{Code: Code(err)}
	switch out.Code {
	case wire.CodeEngineUnavailable, wire.CodeBusy:
		out.Retryable = true
	}
	out.Message = c.srv.catalog.Error(out.Code, err.Error())
	return out
}

// Code maps an error onto its wire code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, game.ErrBusy):
		return wire.CodeBusy
	case errors.Is(err, game.ErrGameOver):
		return wire.CodeGameOver
	case errors.Is(err, game.ErrNotYourTurn):
		return wire.CodeNotYourTurn
	case errors.Is(err, game.ErrNoEngineMove):
		return wire.CodeNoEngineMove
	case errors.Is(err, game.ErrEngineUnavailable), errors.Is(err, context.DeadlineExceeded):
		return wire.CodeEngineUnavailable
	case errors.Is(err, game.ErrInvalidAction):
		return wire.CodeInvalidAction
	case errors.Is(err, position.ErrMalformedPosition):
		return wire.CodeMalformedPosition
	case errors.Is(err, gesture.ErrInputDisabled):
		return wire.CodeInputDisabled
	case errors.Is(err, gesture.ErrGestureActive):
		return wire.CodeGestureActive
	case errors.Is(err, gesture.ErrNoGesture):
		return wire.CodeNoGesture
	case errors.Is(err, gesture.ErrUnknownRegion):
		return wire.CodeUnknownRegion
	case errors.Is(err, gesture.ErrEmptyOrigin):
		return wire.CodeEmptyOrigin
	}
	return wire.CodeInternal
}
