package api

import (
	"context"
	"net/url"
	"time"

	"github.com/nfrund/podclient/internal/domain"
)

// CreateEventRequest schedules an event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	PodID       string    `json:"podId,omitempty"`
	Location    string    `json:"location,omitempty"`
	IsOnline    bool      `json:"isOnline"`
	StartsAt    time.Time `json:"startDate" validate:"required"`
	EndsAt      time.Time `json:"endDate" validate:"required,gtfield=StartsAt"`
}

// ListEvents returns upcoming events, optionally for one pod.
func (c *Client) ListEvents(ctx context.Context, podID string, page Page) ([]domain.Event, error) {
	v := page.values()
	if podID != "" {
		v.Set("podId", podID)
	}
	var out struct {
		Events []domain.Event `json:"events"`
	}
	if err := c.get(ctx, "/api/events", v, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// CreateEvent schedules an event.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*domain.Event, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Event domain.Event `json:"event"`
	}
	if err := c.post(ctx, "/api/events", req, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}

// RegisterForEvent adds the caller to an event's attendees.
func (c *Client) RegisterForEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	var out struct {
		Event domain.Event `json:"event"`
	}
	if err := c.post(ctx, "/api/events/"+url.PathEscape(eventID)+"/register", nil, &out); err != nil {
		return nil, err
	}
	return &out.Event, nil
}
