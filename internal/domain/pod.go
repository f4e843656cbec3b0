package domain

import "slices"

// PodType classifies a pod.
type PodType string

const (
	PodIncubator   PodType = "incubator"
	PodVC          PodType = "vc"
	PodAccelerator PodType = "accelerator"
	PodCommunity   PodType = "community"
)

// Pod is a community entity users can join.
type Pod struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        PodType   `json:"type,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	Website     string    `json:"website,omitempty"`
	Owner       Ref       `json:"owner"`
	CoOwners    []string  `json:"coOwners,omitempty"`
	Members     []string  `json:"members,omitempty"`
	IsVerified  bool      `json:"isVerified"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// HasMember reports whether userID is listed as a member of the pod.
func (p Pod) HasMember(userID string) bool {
	return slices.Contains(p.Members, userID)
}

// IsOwnedBy reports whether userID owns or co-owns the pod.
func (p Pod) IsOwnedBy(userID string) bool {
	return p.Owner.ID == userID || slices.Contains(p.CoOwners, userID)
}

// PodDraft is the partial pod a prospective owner fills in during onboarding.
type PodDraft struct {
	Name        string  `json:"name,omitempty"`
	Type        PodType `json:"type,omitempty"`
	Description string  `json:"description,omitempty"`
	Website     string  `json:"website,omitempty"`
	Logo        string  `json:"logo,omitempty"`
}
