// Package remote is a game.Engine that calls an engine service over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/yokai-board/internal/game"
	"github.com/park285/yokai-board/internal/obslog"
	"github.com/park285/yokai-board/internal/position"
	"github.com/park285/yokai-board/pkg/wire"
)

const (
	PathValid  = "/v1/valid"
	PathPlay   = "/v1/play"
	PathSearch = "/v1/search"
	PathHealth = "/healthz"
)

// HeaderProvider supplies extra headers, such as the bearer token, for every request.
type HeaderProvider func() map[string]string

// ErrUnauthorized means the engine API refused the request's credentials. It is never retried.
var ErrUnauthorized = errors.New("engine api rejected credentials")

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	log     *zap.Logger

	defaultTimeout time.Duration
	searchTimeout  time.Duration
	retryMax       int
}

var _ game.Engine = (*Client)(nil)

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithSearchTimeout bounds search calls, which may run far longer than the others.
func WithSearchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.searchTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		log:            obslog.L(),
		defaultTimeout: 5 * time.Second,
		searchTimeout:  30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func request(pos game.Position, player position.Side) wire.EngineRequest {
	return wire.EngineRequest{Board: pos.Board, Reserve0: pos.Reserve0, Reserve1: pos.Reserve1, Player: int(player)}
}

func (c *Client) Valid(ctx context.Context, pos game.Position, player position.Side, a game.Action) (bool, error) {
	req := request(pos, player)
	req.Action = a.String()
	var resp wire.ValidResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, PathValid, req, &resp, c.defaultTimeout); err != nil {
		return false, err
	}
	return resp.Legal, nil
}

func (c *Client) Play(ctx context.Context, pos game.Position, player position.Side, a game.Action) (game.Position, error) {
	req := request(pos, player)
	req.Action = a.String()
	var resp wire.PositionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, PathPlay, req, &resp, c.defaultTimeout); err != nil {
		return pos, err
	}
	next := game.Position{Board: resp.Board, Reserve0: resp.Reserve0, Reserve1: resp.Reserve1}
	if err := next.Validate(); err != nil {
		return pos, err
	}
	return next, nil
}

func (c *Client) Search(ctx context.Context, pos game.Position, player position.Side, depth int) (game.Position, bool, error) {
	req := request(pos, player)
	req.Depth = depth
	var resp wire.PositionResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, PathSearch, req, &resp, c.searchTimeout); err != nil {
		return pos, false, err
	}
	if !resp.Moved {
		return pos, false, nil
	}
	next := game.Position{Board: resp.Board, Reserve0: resp.Reserve0, Reserve1: resp.Reserve1}
	if err := next.Validate(); err != nil {
		return pos, false, err
	}
	return next, true, nil
}

func (c *Client) Health(ctx context.Context) (wire.HealthResponse, error) {
	var resp wire.HealthResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, PathHealth, nil, &resp, c.defaultTimeout)
	return resp, err
}

// doJSON retries transport failures and 5xx answers. Every engine call is a pure function of its
// request, so all of them may be retried.
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, timeout time.Duration) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := computeDeadline(ctx, timeout)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			c.log.Debug("remote_engine_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := decodeError(status, resp.Body())
			if attempt == attempts || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			c.log.Debug("remote_engine_retry", zap.String("path", path), zap.Int("status", status))
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// decodeError maps an error body back onto the sentinels callers test with errors.Is.
func decodeError(status int, body []byte) error {
	var de wire.DomainError
	if err := json.Unmarshal(body, &de); err != nil || de.Code == "" {
		return fmt.Errorf("engine api error: status=%d body=%s", status, truncate(string(body), 512))
	}
	switch de.Code {
	case wire.CodeInvalidAction:
		return fmt.Errorf("%w: %w", game.ErrInvalidAction, de)
	case wire.CodeMalformedPosition:
		return fmt.Errorf("%w: %w", position.ErrMalformedPosition, de)
	case wire.CodeUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, de)
	}
	return fmt.Errorf("engine api error: status=%d: %w", status, de)
}

func computeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	clientDL := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
