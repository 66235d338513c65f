// Package gesture turns pick-up, hover and drop events on rendered regions into at most one move
// per gesture.
package gesture

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/board"
	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
	"github.com/park285/yokai-board/pkg/wire"
)

var (
	ErrInputDisabled = errors.New("input disabled for this side")
	ErrGestureActive = errors.New("a gesture is already in progress")
	ErrNoGesture     = errors.New("no gesture in progress")
	ErrUnknownRegion = errors.New("unknown region")
	ErrEmptyOrigin   = errors.New("no such piece at origin")
)

type Phase uint8

const (
	Idle Phase = iota
	Lifted
	Highlighted
)

func (p Phase) String() string {
	switch p {
	case Lifted:
		return "lifted"
	case Highlighted:
		return "highlighted"
	}
	return "idle"
}

// Board is what the mapper reads and decorates. *game.Session implements it.
type Board interface {
	PieceAt(game.Locator) position.Piece
	InputEnabled(position.Side) bool
	AddMarker(index int, kind board.MarkerKind)
	RemoveMarkers(filters ...board.MarkerFilter)
}

// Mover commits an action. *game.Session implements it.
type Mover interface {
	Play(ctx context.Context, a game.Action) (bool, error)
}

type OutcomeKind string

const (
	Committed OutcomeKind = wire.OutcomeCommitted
	Rejected  OutcomeKind = wire.OutcomeRejected
	Abandoned OutcomeKind = wire.OutcomeAbandoned
	Failed    OutcomeKind = wire.OutcomeFailed
)

// Outcome describes how a drop ended. Action is set whenever the mover was called.
type Outcome struct {
	Kind   OutcomeKind
	Action *game.Action
	Reason string
}

// View is the visual state a renderer needs: the hidden piece element and the highlighted region.
type View struct {
	Phase       Phase
	Hidden      string
	Highlighted string
}

type Mapper struct {
	board Board
	mover Mover
	log   *zap.Logger

	mu          sync.Mutex
	phase       Phase
	piece       position.Piece
	origin      game.Locator
	hidden      string
	highlighted string
	hoverIndex  int
}

type Option func(*Mapper)

func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.log = l
		}
	}
}

func New(b Board, mover Mover, opts ...Option) *Mapper {
	m := &Mapper{board: b, mover: mover, log: obslog.L(), hoverIndex: -1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mapper) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{Phase: m.phase, Hidden: m.hidden, Highlighted: m.highlighted}
}

// PickUp starts a gesture on the piece element pieceID standing in originID. An empty originID is
// taken from the first segment of pieceID.
func (m *Mapper) PickUp(pieceID, originID string) error {
	region, char, hasChar := splitPieceID(pieceID)
	if originID == "" {
		originID = region
	}
	origin, ok := ParseRegion(originID)
	if !ok {
		return ErrUnknownRegion
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Idle {
		return ErrGestureActive
	}
	p := m.board.PieceAt(origin)
	if p.IsZero() || (hasChar && p.Char() != char) {
		return ErrEmptyOrigin
	}
	if !m.board.InputEnabled(p.Owner) {
		return ErrInputDisabled
	}
	if side, isReserve := origin.ReserveSide(); isReserve && side != p.Owner {
		return ErrInputDisabled
	}

	m.phase = Lifted
	m.piece = p
	m.origin = origin
	m.hidden = pieceID
	if m.hidden == "" {
		m.hidden = PieceID(originID, p)
	}
	if origin.IsSquare() {
		m.board.AddMarker(origin.Index, board.MarkerSelected)
	}
	m.log.Debug("gesture_pickup", zap.String("piece", m.hidden), zap.String("origin", origin.String()))
	return nil
}

// HoverEnter highlights the region under the pointer. Hovering without a gesture is ignored.
func (m *Mapper) HoverEnter(regionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == Idle {
		return
	}
	m.clearHoverLocked()
	m.phase = Highlighted
	m.highlighted = regionID
	if l, ok := Resolve(regionID); ok {
		m.hoverIndex = l.Index
		m.board.AddMarker(l.Index, board.MarkerDropHover)
	}
}

// HoverLeave removes the highlight if regionID is the highlighted region.
func (m *Mapper) HoverLeave(regionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Highlighted || m.highlighted != regionID {
		return
	}
	m.clearHoverLocked()
	m.phase = Lifted
}

func (m *Mapper) clearHoverLocked() {
	if m.hoverIndex >= 0 {
		m.board.RemoveMarkers(board.AtIndex(m.hoverIndex), board.OfKind(board.MarkerDropHover))
	}
	m.hoverIndex = -1
	m.highlighted = ""
}

// resetLocked un-highlights, restores the lifted piece and returns to Idle.
func (m *Mapper) resetLocked() {
	m.clearHoverLocked()
	if m.origin.IsSquare() {
		m.board.RemoveMarkers(board.AtIndex(m.origin.Index), board.OfKind(board.MarkerSelected))
	}
	m.phase = Idle
	m.hidden = ""
	m.piece = position.Piece{}
	m.origin = game.Locator{}
}

// Cancel abandons the gesture in progress, if any.
func (m *Mapper) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase == Idle {
		return
	}
	m.resetLocked()
	m.log.Debug("gesture_cancelled")
}

// Drop ends the gesture on targetID. The gesture is always finished, whatever the outcome; the
// mover is called at most once. The returned error is only set when the mover failed.
func (m *Mapper) Drop(ctx context.Context, targetID string) (Outcome, error) {
	m.mu.Lock()
	if m.phase == Idle {
		m.mu.Unlock()
		return Outcome{}, ErrNoGesture
	}
	piece, origin := m.piece, m.origin
	m.resetLocked()
	current := m.board.PieceAt(origin)
	m.mu.Unlock()

	target, ok := Resolve(targetID)
	if !ok {
		return m.abandon("outside droppable regions", targetID), nil
	}
	if target == origin {
		return m.abandon("dropped on origin", targetID), nil
	}
	if current != piece {
		return m.abandon("origin piece vanished", targetID), nil
	}

	var a game.Action
	if origin.IsSquare() {
		a = game.Move(piece.Kind, origin.Index, target.Index)
	} else {
		a = game.Drop(piece.Kind, piece.Owner, origin.Index, target.Index)
	}
	committed, err := m.mover.Play(ctx, a)
	if err != nil {
		m.log.Warn("gesture_move_failed", zap.String("action", a.String()), zap.Error(err))
		return Outcome{Kind: Failed, Action: &a, Reason: err.Error()}, err
	}
	if !committed {
		m.log.Debug("gesture_move_rejected", zap.String("action", a.String()))
		return Outcome{Kind: Rejected, Action: &a, Reason: "illegal move"}, nil
	}
	m.log.Debug("gesture_move_committed", zap.String("action", a.String()))
	return Outcome{Kind: Committed, Action: &a}, nil
}

func (m *Mapper) abandon(reason, target string) Outcome {
	m.log.Debug("gesture_abandoned", zap.String("reason", reason), zap.String("target", target))
	return Outcome{Kind: Abandoned, Reason: reason}
}
