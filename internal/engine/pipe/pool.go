package pipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/obslog"
)

type PoolConfig struct {
	Process  Process
	Capacity int
}

// Pool keeps up to Capacity engine processes and hands them out one caller at a time.
type Pool struct {
	proc     Process
	capacity int
	log      *zap.Logger

	mu       sync.Mutex
	total    int
	idle     chan *Session
	sessions map[*Session]struct{}
	closed   bool
}

var (
	errPoolAtCapacity = errors.New("engine pool at capacity")
	ErrPoolClosed     = errors.New("engine pool closed")
)

func NewPool(cfg PoolConfig, log *zap.Logger) (*Pool, error) {
	if cfg.Process.Path == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.Process.Path); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}
	if log == nil {
		log = obslog.L()
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	return &Pool{
		proc:     cfg.Process,
		capacity: capacity,
		log:      log,
		idle:     make(chan *Session, capacity),
		sessions: make(map[*Session]struct{}),
	}, nil
}

func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		select {
		case session := <-p.idle:
			if s, ok := p.revive(ctx, session); ok {
				return s, nil
			}
			continue
		default:
		}

		session, err := p.create(ctx)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, errPoolAtCapacity) {
			return nil, err
		}

		select {
		case session := <-p.idle:
			if s, ok := p.revive(ctx, session); ok {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// revive checks an idle session before handing it out; dead sessions are discarded.
func (p *Pool) revive(ctx context.Context, session *Session) (*Session, bool) {
	if session == nil {
		return nil, false
	}
	if err := session.EnsureReady(ctx); err != nil {
		p.log.Warn("pipe_session_discarded", zap.Error(err))
		p.discard(session)
		return nil, false
	}
	return session, true
}

func (p *Pool) create(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.total >= p.capacity {
		p.mu.Unlock()
		return nil, errPoolAtCapacity
	}
	p.total++
	p.mu.Unlock()

	session, err := NewSession(ctx, p.proc, p.log)
	if err != nil {
		p.decrement()
		return nil, err
	}
	p.mu.Lock()
	p.sessions[session] = struct{}{}
	p.mu.Unlock()
	p.log.Debug("pipe_session_started", zap.String("path", p.proc.Path))
	return session, nil
}

// Release returns a session. A session that failed its last call is closed instead of reused.
func (p *Pool) Release(session *Session, err error) {
	if session == nil {
		return
	}
	p.mu.Lock()
	_, ok := p.sessions[session]
	closed := p.closed
	p.mu.Unlock()
	if !ok {
		_ = session.Close()
		return
	}
	if err != nil || closed {
		p.discard(session)
		return
	}
	select {
	case p.idle <- session:
	default:
		p.discard(session)
	}
}

func (p *Pool) discard(session *Session) {
	p.mu.Lock()
	_, ok := p.sessions[session]
	delete(p.sessions, session)
	p.mu.Unlock()
	_ = session.Close()
	if ok {
		p.decrement()
	}
}

func (p *Pool) decrement() {
	p.mu.Lock()
	if p.total > 0 {
		p.total--
	}
	p.mu.Unlock()
}

// Size reports how many processes are alive.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case session := <-p.idle:
			if session == nil {
				continue
			}
			p.mu.Lock()
			delete(p.sessions, session)
			p.mu.Unlock()
			if err := session.Close(); err != nil {
				errs = append(errs, err)
			}
			p.decrement()
		default:
			return errors.Join(errs...)
		}
	}
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}
