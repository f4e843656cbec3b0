package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// ListChats returns the caller's direct conversations.
func (c *Client) ListChats(ctx context.Context) ([]domain.Chat, error) {
	var out struct {
		Chats []domain.Chat `json:"chats"`
	}
	if err := c.get(ctx, "/api/messages/chats", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// GetOrCreateChat returns the conversation with userID, creating it if needed.
func (c *Client) GetOrCreateChat(ctx context.Context, userID string) (*domain.Chat, error) {
	req := struct {
		UserID string `json:"userId" validate:"required"`
	}{UserID: userID}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Chat domain.Chat `json:"chat"`
	}
	if err := c.post(ctx, "/api/messages/chats", req, &out); err != nil {
		return nil, err
	}
	return &out.Chat, nil
}

// ChatMessages returns the history of a conversation.
func (c *Client) ChatMessages(ctx context.Context, chatID string, page Page) ([]domain.DirectMessage, error) {
	var out struct {
		Messages []domain.DirectMessage `json:"messages"`
	}
	if err := c.get(ctx, chatPath(chatID)+"/messages", page.values(), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendChatMessage stores a direct message through REST. Live delivery goes
// through the realtime channel; this is the fallback used when it is down.
func (c *Client) SendChatMessage(ctx context.Context, chatID, content string) (*domain.DirectMessage, error) {
	req := struct {
		Content string `json:"content" validate:"required"`
	}{Content: content}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Message domain.DirectMessage `json:"message"`
	}
	if err := c.post(ctx, chatPath(chatID)+"/messages", req, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

func chatPath(chatID string) string {
	return "/api/messages/chats/" + url.PathEscape(chatID)
}
