package pipe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
)

const (
	defaultReadyTimeout = 4 * time.Second
	defaultCallTimeout  = 3 * time.Second
)

// Process describes how to start the engine binary.
type Process struct {
	Path string
	Args []string
	// Env is appended to the current environment.
	Env          []string
	ReadyTimeout time.Duration
	CallTimeout  time.Duration
}

// Session is one running engine process. Calls on a session are serialised.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	log    *zap.Logger

	callTimeout time.Duration

	mu   sync.Mutex
	call sync.Mutex
}

func NewSession(ctx context.Context, proc Process, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = obslog.L()
	}
	cmd := exec.Command(proc.Path, proc.Args...)
	if len(proc.Env) > 0 {
		cmd.Env = append(os.Environ(), proc.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:         cmd,
		stdin:       stdin,
		stdout:      bufio.NewReader(stdoutPipe),
		log:         log,
		callTimeout: orDefault(proc.CallTimeout, defaultCallTimeout),
	}
	if err := s.initialize(ctx, orDefault(proc.ReadyTimeout, defaultReadyTimeout)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *Session) initialize(ctx context.Context, timeout time.Duration) error {
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.send(cmdHello + "\n"); err != nil {
		return fmt.Errorf("send %s: %w", cmdHello, err)
	}
	if err := s.awaitToken(initCtx, tokHello); err != nil {
		return fmt.Errorf("wait %s: %w", tokHello, err)
	}
	return s.ensureReady(initCtx)
}

// EnsureReady checks the process still answers.
func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	s.call.Lock()
	defer s.call.Unlock()
	return s.ensureReady(readyCtx)
}

func (s *Session) ensureReady(ctx context.Context) error {
	if err := s.send(cmdReady + "\n"); err != nil {
		return fmt.Errorf("send %s: %w", cmdReady, err)
	}
	if err := s.awaitToken(ctx, tokReady); err != nil {
		return fmt.Errorf("wait %s: %w", tokReady, err)
	}
	return nil
}

func (s *Session) Valid(ctx context.Context, pos game.Position, player position.Side, a game.Action) (bool, error) {
	fields, err := s.roundTrip(ctx, buildValid(pos, player, a), s.callTimeout)
	if err != nil {
		return false, err
	}
	if fields[0] != tokOK || len(fields) != 2 {
		return false, fmt.Errorf("%w: unexpected reply %q to valid", ErrProtocol, strings.Join(fields, " "))
	}
	switch fields[1] {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: ok %q", ErrProtocol, fields[1])
}

func (s *Session) Play(ctx context.Context, pos game.Position, player position.Side, a game.Action) (game.Position, error) {
	fields, err := s.roundTrip(ctx, buildPlay(pos, player, a), s.callTimeout)
	if err != nil {
		return pos, err
	}
	if fields[0] != tokPos {
		return pos, fmt.Errorf("%w: unexpected reply %q to play", ErrProtocol, strings.Join(fields, " "))
	}
	return parsePosition(fields[1:])
}

func (s *Session) Search(ctx context.Context, pos game.Position, player position.Side, depth int) (game.Position, bool, error) {
	fields, err := s.roundTrip(ctx, buildSearch(pos, player, depth), computeSearchTimeout(depth))
	if err != nil {
		return pos, false, err
	}
	switch fields[0] {
	case tokNone:
		return pos, false, nil
	case tokPos:
		next, err := parsePosition(fields[1:])
		if err != nil {
			return pos, false, err
		}
		return next, true, nil
	}
	return pos, false, fmt.Errorf("%w: unexpected reply %q to search", ErrProtocol, strings.Join(fields, " "))
}

// roundTrip sends one request and returns the fields of the first reply line.
func (s *Session) roundTrip(ctx context.Context, msg string, timeout time.Duration) ([]string, error) {
	s.call.Lock()
	defer s.call.Unlock()

	if err := s.send(msg); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		line, err := s.readLine(callCtx)
		if err != nil {
			s.log.Warn("pipe_read_error", zap.String("request", strings.TrimSpace(msg)), zap.Error(err))
			return nil, fmt.Errorf("read line: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == tokInfo {
			continue
		}
		if fields[0] == tokError {
			return nil, fmt.Errorf("%w: engine error: %s", ErrProtocol, strings.Join(fields[1:], " "))
		}
		return fields, nil
	}
}

// computeSearchTimeout grows with depth within [6s, 20s].
func computeSearchTimeout(depth int) time.Duration {
	base := time.Duration(depth) * 2 * time.Second
	if base < 6*time.Second {
		base = 6 * time.Second
	}
	if base > 20*time.Second {
		base = 20 * time.Second
	}
	return base
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		_, _ = io.WriteString(s.stdin, cmdQuit+"\n")
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		err := s.cmd.Wait()
		s.cmd = nil
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
