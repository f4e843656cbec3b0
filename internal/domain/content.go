package domain

// Post is a feed entry.
type Post struct {
	ID            string    `json:"id"`
	Author        Ref       `json:"author"`
	PodID         string    `json:"podId,omitempty"`
	Content       string    `json:"content"`
	Media         []string  `json:"media,omitempty"`
	LikesCount    int       `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	LikedByMe     bool      `json:"isLiked"`
	CreatedAt     Timestamp `json:"createdAt"`
}

// Comment belongs to a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    Ref       `json:"author"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Reaction is an emoji-style reaction on a post.
type Reaction struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// Room is a group conversation, usually scoped to a pod.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PodID       string    `json:"podId,omitempty"`
	Members     []string  `json:"members,omitempty"`
	CreatedBy   Ref       `json:"createdBy"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// RoomMessage is a message posted to a room.
type RoomMessage struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    Ref       `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Chat is a one-to-one conversation.
type Chat struct {
	ID           string         `json:"id"`
	Participants []Ref          `json:"participants"`
	LastMessage  *DirectMessage `json:"lastMessage,omitempty"`
	UpdatedAt    Timestamp      `json:"updatedAt"`
}

// DirectMessage is a message inside a chat.
type DirectMessage struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chatId"`
	Sender     Ref       `json:"sender"`
	ReceiverID string    `json:"receiverId,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  Timestamp `json:"createdAt"`
}

// Event is a scheduled pod event.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PodID       string    `json:"podId,omitempty"`
	Location    string    `json:"location,omitempty"`
	IsOnline    bool      `json:"isOnline"`
	StartsAt    Timestamp `json:"startDate"`
	EndsAt      Timestamp `json:"endDate"`
	Attendees   []string  `json:"attendees,omitempty"`
	CreatedBy   Ref       `json:"createdBy"`
}

// PitchStatus is the review state of a pitch.
type PitchStatus string

const (
	PitchPending  PitchStatus = "pending"
	PitchReviewed PitchStatus = "reviewed"
	PitchAccepted PitchStatus = "accepted"
	PitchRejected PitchStatus = "rejected"
)

// Pitch is a founder's submission to a pod.
type Pitch struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Summary   string      `json:"summary"`
	DeckURL   string      `json:"deckUrl,omitempty"`
	PodID     string      `json:"podId"`
	Founder   Ref         `json:"founder"`
	Status    PitchStatus `json:"status"`
	CreatedAt Timestamp   `json:"createdAt"`
}

// CallBooking is a scheduled call between two members.
type CallBooking struct {
	ID              string    `json:"id"`
	Host            Ref       `json:"host"`
	Guest           Ref       `json:"guest"`
	Topic           string    `json:"topic,omitempty"`
	ScheduledAt     Timestamp `json:"scheduledAt"`
	DurationMinutes int       `json:"duration"`
	Status          string    `json:"status"`
}

// MessageRequest asks for permission to open a chat.
type MessageRequest struct {
	ID        string    `json:"id"`
	From      Ref       `json:"sender"`
	To        Ref       `json:"receiver"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"createdAt"`
}

// UploadTicket is a presigned upload slot.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
	FileURL   string `json:"fileUrl,omitempty"`
}

// Pagination describes a page of a list response.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"hasMore"`
}
