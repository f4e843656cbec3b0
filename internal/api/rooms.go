package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// CreateRoomRequest opens a room.
type CreateRoomRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	PodID       string `json:"podId,omitempty"`
}

// ListRooms returns the rooms visible to the caller, optionally for one pod.
func (c *Client) ListRooms(ctx context.Context, podID string) ([]domain.Room, error) {
	v := url.Values{}
	if podID != "" {
		v.Set("podId", podID)
	}
	var out struct {
		Rooms []domain.Room `json:"rooms"`
	}
	if err := c.get(ctx, "/api/rooms", v, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}

// GetRoom fetches a room.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var out struct {
		Room domain.Room `json:"room"`
	}
	if err := c.get(ctx, roomPath(roomID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Room, nil
}

// CreateRoom opens a room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Room domain.Room `json:"room"`
	}
	if err := c.post(ctx, "/api/rooms", req, &out); err != nil {
		return nil, err
	}
	return &out.Room, nil
}

// RoomMessages returns the message history of a room, oldest first.
func (c *Client) RoomMessages(ctx context.Context, roomID string, page Page) ([]domain.RoomMessage, error) {
	var out struct {
		Messages []domain.RoomMessage `json:"messages"`
	}
	if err := c.get(ctx, roomPath(roomID)+"/messages", page.values(), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func roomPath(roomID string) string {
	return "/api/rooms/" + url.PathEscape(roomID)
}
