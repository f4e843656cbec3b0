package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nfrund/podclient/internal/api"
	"github.com/nfrund/podclient/internal/domain"
	"github.com/nfrund/podclient/internal/realtime"
	"github.com/nfrund/podclient/internal/tokenstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	msgs []domain.RoomMessage
	err  error
}

func (s stubHistory) RoomMessages(ctx context.Context, roomID string, page api.Page) ([]domain.RoomMessage, error) {
	return s.msgs, s.err
}

// mockChannel records emits and lets tests push inbound events.
type mockChannel struct {
	mu        sync.Mutex
	emits     []string
	onMessage func(domain.RoomMessage)
	onTyping  func(realtime.TypingEvent)
	onStop    func(realtime.TypingEvent)
	offs      int
}

func (m *mockChannel) record(event, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emits = append(m.emits, event+":"+arg)
}

func (m *mockChannel) Emits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.emits...)
}

func (m *mockChannel) JoinRoom(roomID string)  { m.record(realtime.EventJoinRoom, roomID) }
func (m *mockChannel) LeaveRoom(roomID string) { m.record(realtime.EventLeaveRoom, roomID) }
func (m *mockChannel) SendRoomMessage(roomID, content string) {
	m.record(realtime.EventSendMessage, roomID+"/"+content)
}
func (m *mockChannel) StartTypingRoom(roomID string) { m.record(realtime.EventTypingStartRoom, roomID) }
func (m *mockChannel) StopTypingRoom(roomID string)  { m.record(realtime.EventTypingStopRoom, roomID) }

func (m *mockChannel) OnRoomMessage(fn func(domain.RoomMessage)) (*realtime.Subscription, error) {
	m.onMessage = fn
	return &realtime.Subscription{Event: realtime.EventNewMessage}, nil
}

func (m *mockChannel) OnTyping(fn func(realtime.TypingEvent)) (*realtime.Subscription, error) {
	m.onTyping = fn
	return &realtime.Subscription{Event: realtime.EventUserTyping}, nil
}

func (m *mockChannel) OnStopTyping(fn func(realtime.TypingEvent)) (*realtime.Subscription, error) {
	m.onStop = fn
	return &realtime.Subscription{Event: realtime.EventUserStopTyping}, nil
}

func (m *mockChannel) Off(sub *realtime.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offs++
}

func msg(id, roomID, sender string) domain.RoomMessage {
	return domain.RoomMessage{ID: id, RoomID: roomID, Sender: domain.Ref{ID: sender}, Content: "text " + id}
}

func ids(msgs []domain.RoomMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestRoom_OpenLoadsHistoryAndJoins(t *testing.T) {
	ch := &mockChannel{}
	room := New("r1", stubHistory{msgs: []domain.RoomMessage{msg("m1", "r1", "u1"), msg("m2", "r1", "u2")}}, ch)

	require.NoError(t, room.Open(context.Background()))

	assert.Equal(t, []string{"m1", "m2"}, ids(room.Messages()))
	assert.Equal(t, []string{"join-room:r1"}, ch.Emits())
}

func TestRoom_OpenHistoryFailure(t *testing.T) {
	ch := &mockChannel{}
	room := New("r1", stubHistory{err: errors.New("down")}, ch)

	require.Error(t, room.Open(context.Background()))
	assert.Empty(t, ch.Emits())
	assert.ErrorIs(t, room.Send("hi"), ErrNotOpen)
}

func TestRoom_MergesLiveMessages(t *testing.T) {
	ch := &mockChannel{}
	var hooked []string
	room := New("r1", stubHistory{msgs: []domain.RoomMessage{msg("m1", "r1", "u1")}}, ch,
		WithMessageHook(func(m domain.RoomMessage) { hooked = append(hooked, m.ID) }))
	require.NoError(t, room.Open(context.Background()))

	ch.onMessage(msg("m1", "r1", "u1"))
	ch.onMessage(msg("m2", "r1", "u2"))
	ch.onMessage(msg("x1", "r2", "u2"))
	ch.onMessage(msg("m2", "r1", "u2"))

	assert.Equal(t, []string{"m1", "m2"}, ids(room.Messages()))
	assert.Equal(t, []string{"m2"}, hooked)
}

func TestRoom_TypingUsers(t *testing.T) {
	ch := &mockChannel{}
	room := New("r1", stubHistory{}, ch)
	require.NoError(t, room.Open(context.Background()))

	ch.onTyping(realtime.TypingEvent{RoomID: "r1", UserID: "u2", UserName: "Bo"})
	ch.onTyping(realtime.TypingEvent{RoomID: "r1", UserID: "u1"})
	ch.onTyping(realtime.TypingEvent{RoomID: "other", UserID: "u9"})
	require.Len(t, room.TypingUsers(), 2)
	assert.Equal(t, "u1", room.TypingUsers()[0].UserID)

	ch.onStop(realtime.TypingEvent{RoomID: "r1", UserID: "u1"})
	ch.onMessage(msg("m5", "r1", "u2"))
	assert.Empty(t, room.TypingUsers(), "a user's message ends their typing indicator")
}

func TestRoom_TypingThrottle(t *testing.T) {
	ch := &mockChannel{}
	room := New("r1", stubHistory{}, ch, WithTypingInterval(time.Hour))

	assert.True(t, room.Typing())
	assert.False(t, room.Typing())
	assert.False(t, room.Typing())
	room.StopTyping()

	assert.Equal(t, []string{"typing-start-room:r1", "typing-stop-room:r1"}, ch.Emits())
}

func TestRoom_SendAndClose(t *testing.T) {
	ch := &mockChannel{}
	room := New("r1", stubHistory{}, ch)
	require.NoError(t, room.Open(context.Background()))

	require.NoError(t, room.Send("hello"))
	room.Close()
	room.Close()

	assert.Equal(t, []string{
		"join-room:r1",
		"typing-stop-room:r1",
		"send-message:r1/hello",
		"leave-room:r1",
	}, ch.Emits())
	assert.Equal(t, 3, ch.offs)
	assert.ErrorIs(t, room.Send("again"), ErrNotOpen)
}

func TestRoom_OverRealtimeChannel(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f struct {
				Event string `json:"event"`
				Data  struct {
					RoomID  string `json:"roomId"`
					Content string `json:"content"`
				} `json:"data"`
			}
			if json.Unmarshal(data, &f) != nil || f.Event != realtime.EventSendMessage {
				continue
			}
			echoed, _ := json.Marshal(map[string]any{
				"event": realtime.EventNewMessage,
				"data": map[string]any{
					"id":      "srv-1",
					"roomId":  f.Data.RoomID,
					"content": f.Data.Content,
					"sender":  map[string]string{"id": "u1"},
				},
			})
			if conn.WriteMessage(websocket.TextMessage, echoed) != nil {
				return
			}
		}
	}))
	defer srv.Close()

	tokens := tokenstore.NewFileStore(afero.NewMemMapFs(), "/tokens")
	require.NoError(t, tokens.Save("t1"))
	client := realtime.New(realtime.Options{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		MaxRetries: 2,
		MinDelay:   10 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
	}, tokens)
	defer client.Close()

	conn, err := client.Connect()
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.WaitConnected(ctx))

	room := New("r1", stubHistory{}, client)
	require.NoError(t, room.Open(ctx))
	defer room.Close()

	require.NoError(t, room.Send("hello"))

	assert.Eventually(t, func() bool {
		msgs := room.Messages()
		return len(msgs) == 1 && msgs[0].Content == "hello"
	}, 2*time.Second, 20*time.Millisecond)
}
