// Package realtime maintains the authenticated websocket channel to the pods
// backend and routes its events to listeners.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/pubsub"
)

const (
	writeTimeout   = 10 * time.Second
	readLimit      = 1 << 20
	sendBufferSize = 64
)

var (
	// ErrNoToken is returned by Connect when no auth token is stored.
	ErrNoToken = errors.New("realtime: no auth token")
	// ErrClosed is returned by WaitConnected once the connection stopped for good.
	ErrClosed = errors.New("realtime: connection closed")
)

// TokenSource supplies the bearer token for the websocket handshake.
type TokenSource interface {
	Load() (string, error)
}

// Options configures the websocket endpoint and reconnection policy. MinDelay
// is both the shortest wait between attempts and how long a socket must stay
// open to count as connected.
type Options struct {
	URL         string
	MaxRetries  int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	DialTimeout time.Duration
}

// Client owns at most one live connection. Listeners are registered on the
// client rather than on the connection, so they survive reconnects.
type Client struct {
	opts   Options
	tokens TokenSource
	bus    *pubsub.Bridge

	mu   sync.Mutex
	conn *Conn
}

// New creates a disconnected client.
func New(opts Options, tokens TokenSource) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = time.Second
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Client{
		opts:   opts,
		tokens: tokens,
		bus:    pubsub.NewBridge(),
	}
}

// Connect returns the current connection if it is connected. Otherwise it
// tears down any stale connection and starts a new one in the background.
// It fails with ErrNoToken before any network activity when no token is stored.
func (c *Client) Connect() (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.Connected() {
		return c.conn, nil
	}

	token, err := c.tokens.Load()
	if err != nil || token == "" {
		return nil, ErrNoToken
	}

	if c.conn != nil {
		c.conn.close()
	}

	cn := newConn(c.opts, token, c.bus)
	c.conn = cn
	go cn.run()
	return cn, nil
}

// Disconnect closes the current connection, if any, and clears the handle.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cn != nil {
		cn.close()
		slog.Info("Realtime channel disconnected", "event", "realtime_disconnect")
	}
}

// Conn returns the current connection handle, or nil.
func (c *Client) Conn() *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Close disconnects and shuts down the event bus.
func (c *Client) Close() error {
	c.Disconnect()
	return c.bus.Close()
}

// Shutdown lets a dependency injector close the client.
func (c *Client) Shutdown() error {
	return c.Close()
}

// JoinRoom subscribes the socket to a room's broadcasts.
func (c *Client) JoinRoom(roomID string) {
	c.emit(EventJoinRoom, roomPayload{RoomID: roomID})
}

// LeaveRoom unsubscribes the socket from a room's broadcasts.
func (c *Client) LeaveRoom(roomID string) {
	c.emit(EventLeaveRoom, roomPayload{RoomID: roomID})
}

// SendRoomMessage posts a message to a room.
func (c *Client) SendRoomMessage(roomID, content string) {
	c.emit(EventSendMessage, roomMessagePayload{RoomID: roomID, Content: content})
}

// JoinChat subscribes the socket to a direct chat.
func (c *Client) JoinChat(chatID string) {
	c.emit(EventJoinChat, chatPayload{ChatID: chatID})
}

// SendDirectMessage posts a message to a direct chat.
func (c *Client) SendDirectMessage(chatID, receiverID, content string) {
	c.emit(EventSendDM, directMessagePayload{ChatID: chatID, ReceiverID: receiverID, Content: content})
}

func (c *Client) StartTypingRoom(roomID string) {
	c.emit(EventTypingStartRoom, roomPayload{RoomID: roomID})
}

func (c *Client) StartTypingChat(chatID string) {
	c.emit(EventTypingStartChat, chatPayload{ChatID: chatID})
}

func (c *Client) StopTypingRoom(roomID string) {
	c.emit(EventTypingStopRoom, roomPayload{RoomID: roomID})
}

func (c *Client) StopTypingChat(chatID string) {
	c.emit(EventTypingStopChat, chatPayload{ChatID: chatID})
}

func (c *Client) emit(event string, data any) {
	cn := c.Conn()
	if cn == nil {
		slog.Debug("Dropping realtime emit, not connected", "event_name", event)
		return
	}
	cn.emit(event, data)
}

// Subscription is the handle returned by the On* methods.
type Subscription struct {
	ID     string
	Event  string
	cancel context.CancelFunc
}

// Unsubscribe stops delivery to the listener. It is safe to call twice.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}

// Off removes a listener registered with one of the On* methods.
func (c *Client) Off(sub *Subscription) {
	sub.Unsubscribe()
}

// OnRoomMessage registers fn for "new-message" events.
func (c *Client) OnRoomMessage(fn func(domain.RoomMessage)) (*Subscription, error) {
	return listen(c, EventNewMessage, fn)
}

// OnDirectMessage registers fn for "new-dm" events.
func (c *Client) OnDirectMessage(fn func(domain.DirectMessage)) (*Subscription, error) {
	return listen(c, EventNewDM, fn)
}

// OnTyping registers fn for "user-typing" events.
func (c *Client) OnTyping(fn func(TypingEvent)) (*Subscription, error) {
	return listen(c, EventUserTyping, fn)
}

// OnStopTyping registers fn for "user-stop-typing" events.
func (c *Client) OnStopTyping(fn func(TypingEvent)) (*Subscription, error) {
	return listen(c, EventUserStopTyping, fn)
}

// OnNotification registers fn for "notification" events.
func (c *Client) OnNotification(fn func(Notification)) (*Subscription, error) {
	return listen(c, EventNotification, fn)
}

func listen[T any](c *Client, event string, fn func(T)) (*Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	err := c.bus.Subscribe(ctx, event, func(ctx context.Context, msg pubsub.Message) error {
		var f struct {
			Data T `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &f); err != nil {
			return fmt.Errorf("decode %s payload: %w", event, err)
		}
		fn(f.Data)
		return nil
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &Subscription{ID: uuid.NewString(), Event: event, cancel: cancel}, nil
}

// Conn is one logical connection: a dial loop that reconnects until it gives
// up after MaxRetries consecutive failed attempts or is closed. A socket that
// drops within MinDelay of opening counts as a failed attempt, and every
// reconnect waits out a backoff delay first.
type Conn struct {
	opts  Options
	token string
	bus   pubsub.Publisher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.RWMutex
	send      chan []byte
	connected bool
	ready     chan struct{}
	attempts  int
}

func newConn(opts Options, token string, bus pubsub.Publisher) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		opts:   opts,
		token:  token,
		bus:    bus,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
}

// Connected reports whether the websocket is currently open.
func (cn *Conn) Connected() bool {
	cn.mu.RLock()
	defer cn.mu.RUnlock()
	return cn.connected
}

// Attempts returns the number of consecutive failed connection attempts.
func (cn *Conn) Attempts() int {
	cn.mu.RLock()
	defer cn.mu.RUnlock()
	return cn.attempts
}

// Done is closed when the connection stops for good.
func (cn *Conn) Done() <-chan struct{} {
	return cn.done
}

// WaitConnected blocks until the websocket opens, ctx ends, or the
// connection gives up. A socket that opens and drops again still counts as
// opened; watch Done to learn when the connection stops for good.
func (cn *Conn) WaitConnected(ctx context.Context) error {
	cn.mu.RLock()
	connected, ready := cn.connected, cn.ready
	cn.mu.RUnlock()
	if connected {
		return nil
	}
	select {
	case <-ready:
		return nil
	case <-cn.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cn *Conn) close() {
	cn.cancel()
	<-cn.done
}

func (cn *Conn) run() {
	defer close(cn.done)
	defer cn.cancel()

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     cn.opts.MinDelay,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         cn.opts.MaxDelay,
	}
	bo.Reset()

	for cn.ctx.Err() == nil {
		ws, err := cn.dial()
		if err == nil {
			opened := time.Now()
			err = cn.serve(ws)
			if cn.ctx.Err() != nil {
				return
			}
			if uptime := time.Since(opened); uptime < cn.stableAfter() {
				err = fmt.Errorf("dropped after %s: %w", uptime.Round(time.Millisecond), err)
			} else {
				cn.mu.Lock()
				cn.attempts = 0
				cn.mu.Unlock()
				bo.Reset()

				delay := clampDelay(bo.NextBackOff(), cn.opts.MinDelay, cn.opts.MaxDelay)
				slog.Info("Realtime channel dropped, reconnecting",
					"event", "realtime_reconnect", "delay", delay, "error", err)
				if !cn.sleep(delay) {
					return
				}
				continue
			}
		} else if cn.ctx.Err() != nil {
			return
		}

		cn.mu.Lock()
		cn.attempts++
		attempts := cn.attempts
		cn.mu.Unlock()

		if attempts >= cn.opts.MaxRetries {
			slog.Warn("Realtime reconnection attempts exhausted, giving up",
				"event", "realtime_give_up", "attempts", attempts, "error", err)
			return
		}

		delay := clampDelay(bo.NextBackOff(), cn.opts.MinDelay, cn.opts.MaxDelay)
		slog.Info("Realtime connection failed, retrying",
			"event", "realtime_retry", "attempt", attempts, "delay", delay, "error", err)
		if !cn.sleep(delay) {
			return
		}
	}
}

// stableAfter is how long a socket must stay open before it counts as a
// successful connection rather than a failed attempt.
func (cn *Conn) stableAfter() time.Duration {
	return cn.opts.MinDelay
}

// sleep waits for d and reports false if the connection was closed meanwhile.
func (cn *Conn) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-cn.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func clampDelay(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func (cn *Conn) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(cn.ctx, cn.opts.DialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cn.token)
	ws, resp, err := websocket.Dial(ctx, cn.opts.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", cn.opts.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", cn.opts.URL, err)
	}
	return ws, nil
}

// serve runs the pumps for one open websocket and returns the error that
// ended it. The failed-attempt counter is cleared once the socket has stayed
// open for the stability window.
func (cn *Conn) serve(ws *websocket.Conn) error {
	ws.SetReadLimit(readLimit)
	send := make(chan []byte, sendBufferSize)

	cn.mu.Lock()
	cn.send = send
	cn.connected = true
	close(cn.ready)
	cn.mu.Unlock()
	slog.Info("Realtime channel connected", "event", "realtime_connect", "url", cn.opts.URL)

	stable := time.AfterFunc(cn.stableAfter(), func() {
		cn.mu.Lock()
		cn.attempts = 0
		cn.mu.Unlock()
	})
	defer stable.Stop()

	writeDone := make(chan struct{})
	go cn.writePump(ws, send, writeDone)
	err := cn.readPump(ws)

	cn.mu.Lock()
	cn.connected = false
	cn.send = nil
	close(send)
	cn.ready = make(chan struct{})
	cn.mu.Unlock()

	<-writeDone
	ws.Close(websocket.StatusNormalClosure, "client closing")
	return err
}

// readPump forwards inbound frames to the bus until the socket fails.
func (cn *Conn) readPump(ws *websocket.Conn) error {
	for {
		_, data, err := ws.Read(cn.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case cn.ctx.Err() != nil:
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				slog.Info("Realtime channel closed by server", "event", "realtime_closed")
			default:
				slog.Warn("Realtime read error", "event", "realtime_read_error", "status", status, "error", err)
			}
			return err
		}
		cn.dispatch(data)
	}
}

func (cn *Conn) dispatch(data []byte) {
	var f struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
		slog.Warn("Dropping malformed realtime frame", "event", "realtime_bad_frame", "error", err)
		return
	}
	msg := pubsub.Message{
		Topic:   f.Event,
		Payload: data,
		Metadata: map[string]string{
			"received_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	if err := cn.bus.Publish(cn.ctx, msg); err != nil {
		slog.Error("Failed to publish realtime event", "event_name", f.Event, "error", err)
	}
}

// writePump drains the send channel onto the socket.
func (cn *Conn) writePump(ws *websocket.Conn, send <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for msg := range send {
		ctx, cancel := context.WithTimeout(cn.ctx, writeTimeout)
		err := ws.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			slog.Warn("Realtime write error", "event", "realtime_write_error", "error", err)
			ws.CloseNow()
			for range send {
			}
			return
		}
	}
}

// emit queues a frame for the writer. Frames are dropped while disconnected
// or when the send buffer is full.
func (cn *Conn) emit(event string, data any) {
	payload, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to encode realtime frame", "event_name", event, "error", err)
		return
	}

	cn.mu.RLock()
	defer cn.mu.RUnlock()
	if !cn.connected {
		slog.Debug("Dropping realtime emit, not connected", "event_name", event)
		return
	}
	select {
	case cn.send <- payload:
	default:
		slog.Warn("Realtime send buffer full, dropping frame", "event_name", event)
	}
}
