package api

import (
	"context"
	"time"

	"github.com/nfrund/podclient/internal/domain"
)

// BookCallRequest asks another member for a call.
type BookCallRequest struct {
	GuestID         string    `json:"guestId" validate:"required"`
	Topic           string    `json:"topic,omitempty"`
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"duration" validate:"gte=15,lte=120"`
}

// BookCall schedules a call.
func (c *Client) BookCall(ctx context.Context, req BookCallRequest) (*domain.CallBooking, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Booking domain.CallBooking `json:"booking"`
	}
	if err := c.post(ctx, "/api/call-bookings", req, &out); err != nil {
		return nil, err
	}
	return &out.Booking, nil
}

// ListCallBookings returns calls the caller hosts or attends.
func (c *Client) ListCallBookings(ctx context.Context) ([]domain.CallBooking, error) {
	var out struct {
		Bookings []domain.CallBooking `json:"bookings"`
	}
	if err := c.get(ctx, "/api/call-bookings", nil, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}
