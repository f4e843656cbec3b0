package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// SubmitPitchRequest sends a pitch to a pod.
type SubmitPitchRequest struct {
	PodID   string `json:"podId" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Summary string `json:"summary" validate:"required"`
	DeckURL string `json:"deckUrl,omitempty" validate:"omitempty,url"`
}

// ListPitches returns pitches sent to a pod, or the caller's own when podID is empty.
func (c *Client) ListPitches(ctx context.Context, podID string) ([]domain.Pitch, error) {
	v := url.Values{}
	if podID != "" {
		v.Set("podId", podID)
	}
	var out struct {
		Pitches []domain.Pitch `json:"pitches"`
	}
	if err := c.get(ctx, "/api/pitches", v, &out); err != nil {
		return nil, err
	}
	return out.Pitches, nil
}

// SubmitPitch sends a pitch.
func (c *Client) SubmitPitch(ctx context.Context, req SubmitPitchRequest) (*domain.Pitch, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Pitch domain.Pitch `json:"pitch"`
	}
	if err := c.post(ctx, "/api/pitches", req, &out); err != nil {
		return nil, err
	}
	return &out.Pitch, nil
}

// UpdatePitchStatus records a pod owner's decision on a pitch.
func (c *Client) UpdatePitchStatus(ctx context.Context, pitchID string, status domain.PitchStatus) (*domain.Pitch, error) {
	req := struct {
		Status domain.PitchStatus `json:"status" validate:"required,oneof=pending reviewed accepted rejected"`
	}{Status: status}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Pitch domain.Pitch `json:"pitch"`
	}
	if err := c.patch(ctx, "/api/pitches/"+url.PathEscape(pitchID)+"/status", req, &out); err != nil {
		return nil, err
	}
	return &out.Pitch, nil
}
