package api

import (
	"context"
	"net/url"

	"github.com/nfrund/podclient/internal/domain"
)

// PodQuery filters the pod directory.
type PodQuery struct {
	Page
	Type   domain.PodType
	Search string
}

// CreatePodRequest registers a new pod owned by the caller.
type CreatePodRequest struct {
	Name        string         `json:"name" validate:"required"`
	Type        domain.PodType `json:"type" validate:"required,oneof=incubator vc accelerator community"`
	Description string         `json:"description,omitempty"`
	Website     string         `json:"website,omitempty" validate:"omitempty,url"`
	Logo        string         `json:"logo,omitempty"`
}

// CreatePodRequestFromDraft builds a request from an onboarding draft.
func CreatePodRequestFromDraft(d domain.PodDraft) CreatePodRequest {
	return CreatePodRequest{
		Name:        d.Name,
		Type:        d.Type,
		Description: d.Description,
		Website:     d.Website,
		Logo:        d.Logo,
	}
}

// ListPods returns the pod directory.
func (c *Client) ListPods(ctx context.Context, q PodQuery) ([]domain.Pod, error) {
	v := q.values()
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	var out struct {
		Pods []domain.Pod `json:"pods"`
	}
	if err := c.get(ctx, "/api/pods", v, &out); err != nil {
		return nil, err
	}
	return out.Pods, nil
}

// GetPod fetches a pod.
func (c *Client) GetPod(ctx context.Context, podID string) (*domain.Pod, error) {
	var out struct {
		Pod domain.Pod `json:"pod"`
	}
	if err := c.get(ctx, podPath(podID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Pod, nil
}

// CreatePod registers a pod.
func (c *Client) CreatePod(ctx context.Context, req CreatePodRequest) (*domain.Pod, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var out struct {
		Pod domain.Pod `json:"pod"`
	}
	if err := c.post(ctx, "/api/pods", req, &out); err != nil {
		return nil, err
	}
	return &out.Pod, nil
}

// UpdatePod edits a pod the caller owns.
func (c *Client) UpdatePod(ctx context.Context, podID string, draft domain.PodDraft) (*domain.Pod, error) {
	var out struct {
		Pod domain.Pod `json:"pod"`
	}
	if err := c.put(ctx, podPath(podID), draft, &out); err != nil {
		return nil, err
	}
	return &out.Pod, nil
}

// JoinedPods lists the pods the caller is a member of.
func (c *Client) JoinedPods(ctx context.Context) ([]domain.Pod, error) {
	var out struct {
		Pods []domain.Pod `json:"pods"`
	}
	if err := c.get(ctx, "/api/pods/joined", nil, &out); err != nil {
		return nil, err
	}
	return out.Pods, nil
}

// JoinPod adds the caller to a pod and returns the updated pod.
func (c *Client) JoinPod(ctx context.Context, podID string) (*domain.Pod, error) {
	var out struct {
		Pod domain.Pod `json:"pod"`
	}
	if err := c.post(ctx, podPath(podID)+"/join", nil, &out); err != nil {
		return nil, err
	}
	return &out.Pod, nil
}

// LeavePod removes the caller from a pod.
func (c *Client) LeavePod(ctx context.Context, podID string) error {
	return c.post(ctx, podPath(podID)+"/leave", nil, nil)
}

func podPath(podID string) string {
	return "/api/pods/" + url.PathEscape(podID)
}
