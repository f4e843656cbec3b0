// Package chat holds the view model of a room timeline: its history, live
// messages and who is typing.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/realtime"
	"golang.org/x/time/rate"
)

// DefaultTypingInterval is the minimum gap between two typing-start emits.
const DefaultTypingInterval = 2 * time.Second

// ErrNotOpen is returned when a closed room is asked to send.
var ErrNotOpen = errors.New("chat: room is not open")

// History loads past room messages.
type History interface {
	RoomMessages(ctx context.Context, roomID string, page api.Page) ([]domain.RoomMessage, error)
}

// Channel is the realtime surface a room uses.
type Channel interface {
	JoinRoom(roomID string)
	LeaveRoom(roomID string)
	SendRoomMessage(roomID, content string)
	StartTypingRoom(roomID string)
	StopTypingRoom(roomID string)
	OnRoomMessage(fn func(domain.RoomMessage)) (*realtime.Subscription, error)
	OnTyping(fn func(realtime.TypingEvent)) (*realtime.Subscription, error)
	OnStopTyping(fn func(realtime.TypingEvent)) (*realtime.Subscription, error)
	Off(sub *realtime.Subscription)
}

// Option configures a Room.
type Option func(*Room)

// WithTypingInterval sets the typing-start throttle.
func WithTypingInterval(d time.Duration) Option {
	return func(r *Room) {
		r.typingLimiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithMessageHook calls fn for every live message merged into the timeline.
func WithMessageHook(fn func(domain.RoomMessage)) Option {
	return func(r *Room) {
		r.onMessage = fn
	}
}

// Room is the timeline of one room.
type Room struct {
	id            string
	history       History
	channel       Channel
	typingLimiter *rate.Limiter
	onMessage     func(domain.RoomMessage)

	mu       sync.Mutex
	open     bool
	messages []domain.RoomMessage
	typing   map[string]realtime.TypingEvent
	subs     []*realtime.Subscription
}

// New creates a closed room timeline.
func New(roomID string, history History, channel Channel, opts ...Option) *Room {
	r := &Room{
		id:            roomID,
		history:       history,
		channel:       channel,
		typingLimiter: rate.NewLimiter(rate.Every(DefaultTypingInterval), 1),
		typing:        make(map[string]realtime.TypingEvent),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ID returns the room id.
func (r *Room) ID() string {
	return r.id
}

// Open loads the history, joins the room and starts listening for live
// events. Listeners are registered before the join so no broadcast is missed.
func (r *Room) Open(ctx context.Context) error {
	msgs, err := r.history.RoomMessages(ctx, r.id, api.Page{})
	if err != nil {
		slog.WarnContext(ctx, "Failed to load room history", "event", "room_history_failed", "room_id", r.id, "error", err)
		return err
	}

	r.mu.Lock()
	r.messages = nil
	for _, m := range msgs {
		r.mergeLocked(m)
	}
	r.mu.Unlock()

	subs := make([]*realtime.Subscription, 0, 3)
	register := func(sub *realtime.Subscription, err error) error {
		if err != nil {
			return err
		}
		subs = append(subs, sub)
		return nil
	}
	err = errors.Join(
		register(r.channel.OnRoomMessage(r.handleMessage)),
		register(r.channel.OnTyping(r.handleTyping)),
		register(r.channel.OnStopTyping(r.handleStopTyping)),
	)
	if err != nil {
		for _, sub := range subs {
			r.channel.Off(sub)
		}
		return err
	}

	r.mu.Lock()
	r.subs = subs
	r.open = true
	r.mu.Unlock()

	r.channel.JoinRoom(r.id)
	slog.InfoContext(ctx, "Room opened", "event", "room_open", "room_id", r.id, "history", len(msgs))
	return nil
}

// Close leaves the room and stops listening. The timeline stays readable.
func (r *Room) Close() {
	r.mu.Lock()
	subs := r.subs
	wasOpen := r.open
	r.subs = nil
	r.open = false
	clear(r.typing)
	r.mu.Unlock()

	for _, sub := range subs {
		r.channel.Off(sub)
	}
	if wasOpen {
		r.channel.LeaveRoom(r.id)
	}
}

// Send posts text to the room. The message shows up in the timeline when the
// server broadcasts it back.
func (r *Room) Send(text string) error {
	r.mu.Lock()
	open := r.open
	r.mu.Unlock()
	if !open {
		return ErrNotOpen
	}
	r.channel.StopTypingRoom(r.id)
	r.channel.SendRoomMessage(r.id, text)
	return nil
}

// Typing announces that the user is typing, at most once per typing interval.
// It reports whether an event was emitted.
func (r *Room) Typing() bool {
	if !r.typingLimiter.Allow() {
		return false
	}
	r.channel.StartTypingRoom(r.id)
	return true
}

// StopTyping announces that the user stopped typing.
func (r *Room) StopTyping() {
	r.channel.StopTypingRoom(r.id)
}

// Messages returns a copy of the timeline in arrival order.
func (r *Room) Messages() []domain.RoomMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.messages)
}

// TypingUsers returns the users currently typing, sorted by id.
func (r *Room) TypingUsers() []realtime.TypingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.TypingEvent, 0, len(r.typing))
	for _, ev := range r.typing {
		out = append(out, ev)
	}
	slices.SortFunc(out, func(a, b realtime.TypingEvent) int {
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})
	return out
}

func (r *Room) handleMessage(m domain.RoomMessage) {
	if m.RoomID != r.id {
		return
	}
	r.mu.Lock()
	added := r.mergeLocked(m)
	delete(r.typing, m.Sender.ID)
	r.mu.Unlock()

	if added && r.onMessage != nil {
		r.onMessage(m)
	}
}

// mergeLocked appends m unless a message with the same id is present.
func (r *Room) mergeLocked(m domain.RoomMessage) bool {
	if m.ID != "" && slices.ContainsFunc(r.messages, func(x domain.RoomMessage) bool { return x.ID == m.ID }) {
		return false
	}
	r.messages = append(r.messages, m)
	return true
}

func (r *Room) handleTyping(ev realtime.TypingEvent) {
	if ev.RoomID != r.id || ev.UserID == "" {
		return
	}
	r.mu.Lock()
	r.typing[ev.UserID] = ev
	r.mu.Unlock()
}

func (r *Room) handleStopTyping(ev realtime.TypingEvent) {
	if ev.RoomID != r.id {
		return
	}
	r.mu.Lock()
	delete(r.typing, ev.UserID)
	r.mu.Unlock()
}
