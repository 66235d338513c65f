package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/yokai-board/pkg/wire"
)

type StateCallback func(msg *wire.StateMessage)

// HeaderProvider allows injecting handshake headers.
type HeaderProvider func() map[string]string

var ErrClientClosed = errors.New("bridge client closed")

type callbackEntry struct {
	id       int
	callback StateCallback
}

// Client is a websocket client for the bridge: it sends gesture events and fans every state
// message out to the registered callbacks.
type Client struct {
	url            string
	headerProvider HeaderProvider
	pingInterval   time.Duration

	conn *websocket.Conn

	cbs    []callbackEntry
	nextID int
	cbM    sync.RWMutex

	errM    sync.Mutex
	readErr error

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewClient(url string) *Client {
	return &Client{
		url:          url,
		pingInterval: 30 * time.Second,
		stopCh:       make(chan struct{}),
	}
}

func (c *Client) SetHeaderProvider(h HeaderProvider) { c.headerProvider = h }

func (c *Client) SetPingInterval(d time.Duration) {
	if d > 0 {
		c.pingInterval = d
	}
}

// Connect dials the bridge and starts the read and ping loops. Callbacks registered before Connect
// see the initial state message.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	c.rootCtx, c.rootCancel = context.WithCancel(context.Background())

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		c.rootCancel()
		return err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.listen()
	go c.pingLoop()
	return nil
}

func (c *Client) listen() {
	defer c.wg.Done()
	for {
		var msg wire.StateMessage
		if err := wsjson.Read(c.rootCtx, c.conn, &msg); err != nil {
			c.errM.Lock()
			c.readErr = err
			c.errM.Unlock()
			return
		}

		c.cbM.RLock()
		callbacks := make([]callbackEntry, len(c.cbs))
		copy(callbacks, c.cbs)
		c.cbM.RUnlock()
		for _, entry := range callbacks {
			if entry.callback != nil {
				entry.callback(&msg)
			}
		}
	}
}

func (c *Client) pingLoop() {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil && !c.isStopping() {
				_ = c.conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// Send writes one gesture event.
func (c *Client) Send(ctx context.Context, ev wire.GestureEvent) error {
	if c.conn == nil || c.isStopping() {
		return ErrClientClosed
	}
	return wsjson.Write(ctx, c.conn, ev)
}

// Err reports why the read loop stopped, if it has.
func (c *Client) Err() error {
	c.errM.Lock()
	defer c.errM.Unlock()
	return c.readErr
}

func (c *Client) OnState(cb StateCallback) int {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	c.nextID++
	c.cbs = append(c.cbs, callbackEntry{id: c.nextID, callback: cb})
	return c.nextID
}

func (c *Client) RemoveStateCallback(id int) {
	c.cbM.Lock()
	defer c.cbM.Unlock()
	for i, cb := range c.cbs {
		if cb.id == id {
			c.cbs = append(c.cbs[:i], c.cbs[i+1:]...)
			break
		}
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		if c.rootCancel != nil {
			c.rootCancel()
		}
		return nil
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headerProvider == nil {
		return hdr
	}
	for k, v := range c.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
