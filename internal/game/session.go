package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/board"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
)

// Controller tells who plays a side.
type Controller uint8

const (
	Human Controller = iota
	Computer
)

func (c Controller) String() string {
	if c == Computer {
		return "computer"
	}
	return "human"
}

const (
	DefaultDepth = 4
	// advanceLimit bounds Advance when both sides are engine controlled.
	advanceLimit = 256
)

// Session owns one game: its configuration, the decoded board view and the history.
// At most one engine call is in flight; while it runs, input is disabled for both sides and the
// configuration is only replaced once the call has returned.
type Session struct {
	id  string
	log *zap.Logger
	now func() time.Time

	mu          sync.Mutex
	busy        bool
	cfg         *Configuration
	view        *board.State
	history     *History
	controllers [2]Controller
	depth       [2]int
	defDepth    int
}

type sessionOptions struct {
	logger      *zap.Logger
	controllers [2]Controller
	depth       [2]int
	defDepth    int
	orientation position.Side
	start       *Position
	player      position.Side
}

type SessionOption func(*sessionOptions)

func WithLogger(l *zap.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithComputer hands side to the engine. depth <= 0 uses the session default.
func WithComputer(side position.Side, depth int) SessionOption {
	return func(o *sessionOptions) {
		if !side.Valid() {
			return
		}
		o.controllers[side] = Computer
		o.depth[side] = depth
	}
}

func WithDefaultDepth(depth int) SessionOption {
	return func(o *sessionOptions) {
		if depth > 0 {
			o.defDepth = depth
		}
	}
}

func WithOrientation(side position.Side) SessionOption {
	return func(o *sessionOptions) { o.orientation = side }
}

// WithStart replaces the default starting position.
func WithStart(pos Position, player position.Side) SessionOption {
	return func(o *sessionOptions) {
		p := pos
		o.start = &p
		o.player = player
	}
}

// NewSession starts a game against engine.
func NewSession(engine Engine, opts ...SessionOption) (*Session, error) {
	o := sessionOptions{logger: obslog.L(), defDepth: DefaultDepth}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := Default(engine)
	if o.start != nil {
		var err error
		cfg, err = NewConfiguration(engine, *o.start, o.player)
		if err != nil {
			return nil, fmt.Errorf("session start: %w", err)
		}
	}

	s := &Session{
		id:          uuid.NewString(),
		now:         time.Now,
		cfg:         cfg,
		view:        board.New(),
		history:     NewHistory(),
		controllers: o.controllers,
		depth:       o.depth,
		defDepth:    o.defDepth,
	}
	s.log = o.logger.With(zap.String("session", s.id))
	s.view.SetOrientation(o.orientation)
	s.view.SetPosition(cfg.Text())

	start := cfg.Snapshot()
	start.Origin = OriginStart
	start.At = s.now()
	s.history.Record(start)
	s.syncInputLocked()

	s.log.Info("session_started",
		zap.String("position", cfg.Text()),
		zap.String("side0", s.controllers[0].String()),
		zap.String("side1", s.controllers[1].String()),
	)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) History() *History { return s.history }

// begin marks the session busy and hands out a private copy of the configuration.
func (s *Session) begin(human bool) (*Configuration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	if _, over := s.cfg.Winner(); over {
		return nil, ErrGameOver
	}
	if human && s.controllers[s.cfg.CurrentPlayer()] != Human {
		return nil, ErrNotYourTurn
	}
	s.busy = true
	s.view.DisableInput()
	return s.cfg.Clone(), nil
}

// finish releases the busy flag and, when next is non-nil, adopts it.
func (s *Session) finish(next *Configuration, origin Origin, a *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if next != nil {
		prev := s.view.Export()
		s.cfg = next
		s.view.SetPosition(next.Text())
		s.markLastMove(prev, s.view.Export())

		snap := next.Snapshot()
		snap.Origin = origin
		snap.Action = a
		snap.At = s.now()
		s.history.Record(snap)
	}
	s.syncInputLocked()
}

// markLastMove highlights every square whose content changed.
func (s *Session) markLastMove(prev, cur position.Fragment) {
	s.view.RemoveMarkers(board.OfKind(board.MarkerLastMove))
	for i := range cur.Squares {
		if prev.Squares[i] != cur.Squares[i] {
			s.view.AddMarker(i, board.MarkerLastMove)
		}
	}
}

// syncInputLocked enables input, and square selection, only for a human side to move while idle.
func (s *Session) syncInputLocked() {
	s.view.DisableInput()
	s.view.SetSquareSelectEnabled(false)
	if s.busy {
		return
	}
	if _, over := s.cfg.Winner(); over {
		return
	}
	cur := s.cfg.CurrentPlayer()
	human := s.controllers[cur] == Human
	s.view.SetInputEnabled(cur, human)
	s.view.SetSquareSelectEnabled(human)
}

// Play commits a human action for the side to move. An illegal action returns (false, nil) and
// leaves the game unchanged.
func (s *Session) Play(ctx context.Context, a Action) (bool, error) {
	cfg, err := s.begin(true)
	if err != nil {
		return false, err
	}
	player := cfg.CurrentPlayer()
	ok, err := cfg.CommitMove(ctx, a)
	if err != nil || !ok {
		s.finish(nil, "", nil)
		if err != nil {
			s.log.Warn("move_failed", zap.String("action", a.String()), zap.Error(err))
		} else {
			s.log.Debug("move_rejected", zap.String("action", a.String()), zap.Stringer("player", player))
		}
		return false, err
	}
	s.finish(cfg, OriginHuman, &a)
	s.log.Info("move_committed",
		zap.String("action", a.String()),
		zap.Stringer("player", player),
		zap.String("position", cfg.Text()),
	)
	return true, nil
}

// EngineTurn lets the engine move for the side to move, whoever controls it.
func (s *Session) EngineTurn(ctx context.Context) error {
	cfg, err := s.begin(false)
	if err != nil {
		return err
	}
	player := cfg.CurrentPlayer()
	depth := s.depthFor(player)
	started := s.now()
	if err := cfg.RequestEngineMove(ctx, depth); err != nil {
		s.finish(nil, "", nil)
		if errors.Is(err, ErrNoEngineMove) {
			s.log.Info("engine_no_move", zap.Stringer("player", player), zap.Int("depth", depth))
		} else {
			s.log.Warn("engine_move_failed", zap.Stringer("player", player), zap.Error(err))
		}
		return err
	}
	s.finish(cfg, OriginEngine, nil)
	s.log.Info("engine_moved",
		zap.Stringer("player", player),
		zap.Int("depth", depth),
		zap.Duration("elapsed", s.now().Sub(started)),
		zap.String("position", cfg.Text()),
	)
	return nil
}

func (s *Session) depthFor(side position.Side) int {
	if d := s.depth[side]; d > 0 {
		return d
	}
	return s.defDepth
}

// Advance plays engine turns while the side to move is engine controlled and nobody has won.
func (s *Session) Advance(ctx context.Context) error {
	for i := 0; i < advanceLimit; i++ {
		s.mu.Lock()
		_, over := s.cfg.Winner()
		computer := s.controllers[s.cfg.CurrentPlayer()] == Computer
		s.mu.Unlock()
		if over || !computer {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.EngineTurn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// View returns a copy of the decoded board.
func (s *Session) View() *board.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Clone()
}

// PieceAt reads the decoded board at l; out-of-range locators are empty.
func (s *Session) PieceAt(l Locator) position.Piece {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.IsSquare() {
		return s.view.Piece(l.Index)
	}
	side, ok := l.ReserveSide()
	if !ok {
		return position.Piece{}
	}
	return s.view.ReservePiece(side, l.Index)
}

func (s *Session) InputEnabled(side position.Side) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.InputEnabled(side)
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) CurrentPlayer() position.Side {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.CurrentPlayer()
}

func (s *Session) Controller(side position.Side) Controller {
	if !side.Valid() {
		return Human
	}
	return s.controllers[side]
}

func (s *Session) Winner() (position.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Winner()
}

// Configuration returns the current configuration as a snapshot.
func (s *Session) Configuration() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, _ := s.history.Last()
	return last
}

// AddMarker and RemoveMarkers let input layers decorate the shared view.
func (s *Session) AddMarker(index int, kind board.MarkerKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.AddMarker(index, kind)
}

func (s *Session) RemoveMarkers(filters ...board.MarkerFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.RemoveMarkers(filters...)
}
