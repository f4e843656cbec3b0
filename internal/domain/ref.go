package domain

import (
	"bytes"
	"encoding/json"
)

// Ref points at another entity. The backend sends either a bare id string or
// a populated object; both decode into a Ref.
type Ref struct {
	ID       string `json:"id"`
	FullName string `json:"fullName,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = Ref{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}

	var obj struct {
		ID       string `json:"id"`
		MongoID  string `json:"_id"`
		FullName string `json:"fullName"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = Ref{ID: obj.ID, FullName: obj.FullName, Username: obj.Username, Avatar: obj.Avatar}
	if r.ID == "" {
		r.ID = obj.MongoID
	}
	if r.FullName == "" {
		r.FullName = obj.Name
	}
	return nil
}

// DisplayName returns the best human-readable label for the reference.
func (r Ref) DisplayName() string {
	switch {
	case r.FullName != "":
		return r.FullName
	case r.Username != "":
		return r.Username
	default:
		return r.ID
	}
}
