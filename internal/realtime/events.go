package realtime

import (
	"github.com/nfrund/podclient/internal/domain"
)

// Events emitted by the client.
const (
	EventJoinRoom        = "join-room"
	EventLeaveRoom       = "leave-room"
	EventSendMessage     = "send-message"
	EventJoinChat        = "join-chat"
	EventSendDM          = "send-dm"
	EventTypingStartRoom = "typing-start-room"
	EventTypingStartChat = "typing-start-chat"
	EventTypingStopRoom  = "typing-stop-room"
	EventTypingStopChat  = "typing-stop-chat"
)

// Events pushed by the server.
const (
	EventNewMessage     = "new-message"
	EventNewDM          = "new-dm"
	EventUserTyping     = "user-typing"
	EventUserStopTyping = "user-stop-typing"
	EventNotification   = "notification"
)

// frame is the JSON envelope of every websocket message in both directions.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// TypingEvent reports that a user started or stopped typing in a room or chat.
// Exactly one of RoomID and ChatID is set.
type TypingEvent struct {
	RoomID   string `json:"roomId,omitempty"`
	ChatID   string `json:"chatId,omitempty"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

// Notification is a server push shown to the user outside of any room.
type Notification struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	CreatedAt domain.Timestamp `json:"createdAt"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type roomMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

type directMessagePayload struct {
	ChatID     string `json:"chatId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
}
