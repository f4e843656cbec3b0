package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// SendMessageRequest asks receiverID for permission to chat.
func (c *Client) SendMessageRequest(ctx context.Context, receiverID, message string) (*domain.MessageRequest, error) {
	req := struct {
		ReceiverID string `json:"receiverId" validate:"required"`
		Message    string `json:"message,omitempty" validate:"max=500"`
	}{ReceiverID: receiverID, Message: message}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Request domain.MessageRequest `json:"request"`
	}
	if err := c.post(ctx, "/api/message-requests", req, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}

// ListMessageRequests returns pending requests addressed to the caller.
func (c *Client) ListMessageRequests(ctx context.Context) ([]domain.MessageRequest, error) {
	var out struct {
		Requests []domain.MessageRequest `json:"requests"`
	}
	if err := c.get(ctx, "/api/message-requests", nil, &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// RespondToMessageRequest accepts or rejects a request. Accepting opens a chat.
func (c *Client) RespondToMessageRequest(ctx context.Context, requestID string, accept bool) (*domain.MessageRequest, error) {
	action := "reject"
	if accept {
		action = "accept"
	}
	var out struct {
		Request domain.MessageRequest `json:"request"`
	}
	if err := c.post(ctx, "/api/message-requests/"+url.PathEscape(requestID)+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out.Request, nil
}
