package game

import (
	"sync"
	"time"

	"github.com/park285/yokai-board/internal/position"
)

// Origin tells what produced a snapshot.
type Origin string

const (
	OriginStart  Origin = "start"
	OriginHuman  Origin = "human"
	OriginEngine Origin = "engine"
)

// Snapshot is an immutable copy of one configuration.
type Snapshot struct {
	Seq      int           `json:"seq"`
	Board    string        `json:"board"`
	Reserve0 string        `json:"reserve0"`
	Reserve1 string        `json:"reserve1"`
	Player   position.Side `json:"player"`
	Origin   Origin        `json:"origin"`
	Action   *Action       `json:"-"`
	At       time.Time     `json:"at"`
}

func (s Snapshot) Position() Position {
	return Position{Board: s.Board, Reserve0: s.Reserve0, Reserve1: s.Reserve1}
}

func (s Snapshot) Text() string { return s.Position().Text() }

// Winner applies the configuration's terminal rule to the snapshot.
func (s Snapshot) Winner() (position.Side, bool) { return winnerOf(s.Reserve0, s.Reserve1) }

// History is an append-only log of snapshots in chronological order.
type History struct {
	mu      sync.RWMutex
	entries []Snapshot
}

func NewHistory() *History { return &History{} }

// Record appends s, numbering it by its position in the log.
func (h *History) Record(s Snapshot) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.Seq = len(h.entries)
	s = detach(s)
	h.entries = append(h.entries, s)
	return detach(s)
}

// detach gives s its own copy of the action so stored entries never share it with callers.
func detach(s Snapshot) Snapshot {
	if s.Action != nil {
		a := *s.Action
		s.Action = &a
	}
	return s
}

// Entries returns a copy of the log.
func (h *History) Entries() []Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Snapshot, len(h.entries))
	for i, s := range h.entries {
		out[i] = detach(s)
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

func (h *History) At(i int) (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.entries) {
		return Snapshot{}, false
	}
	return detach(h.entries[i]), true
}

func (h *History) Last() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	return detach(h.entries[len(h.entries)-1]), true
}
