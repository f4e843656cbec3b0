package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the onboarding role a user picks.
type Role string

const (
	RoleUser     Role = "user"
	RolePodOwner Role = "pod_owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RolePodOwner
}

// Label renders the role for people, e.g. "Pod Owner".
func (r Role) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "_", " "))
}

// SocialLinks groups the optional profile links.
type SocialLinks struct {
	LinkedIn string `json:"linkedin,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Website  string `json:"website,omitempty"`
}

// User is the profile of a platform member.
type User struct {
	ID           string      `json:"id"`
	FullName     string      `json:"fullName"`
	Email        string      `json:"email"`
	Username     string      `json:"username,omitempty"`
	Avatar       string      `json:"avatar,omitempty"`
	Bio          string      `json:"bio,omitempty"`
	Organisation string      `json:"organisation,omitempty"`
	Designation  string      `json:"designation,omitempty"`
	Role         Role        `json:"role,omitempty"`
	Social       SocialLinks `json:"socialLinks"`
	IsVerified   bool        `json:"isVerified,omitempty"`
	CreatedAt    Timestamp   `json:"createdAt"`
}

// ProfileUpdate carries a partial user profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName     *string `json:"fullName,omitempty"`
	Username     *string `json:"username,omitempty"`
	Avatar       *string `json:"avatar,omitempty"`
	Bio          *string `json:"bio,omitempty"`
	Organisation *string `json:"organisation,omitempty"`
	Designation  *string `json:"designation,omitempty"`
	LinkedIn     *string `json:"linkedin,omitempty"`
	Twitter      *string `json:"twitter,omitempty"`
	Website      *string `json:"website,omitempty"`
}

// Apply returns a copy of u with the set fields of upd merged in.
func (u User) Apply(upd ProfileUpdate) User {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.FullName, upd.FullName)
	set(&u.Username, upd.Username)
	set(&u.Avatar, upd.Avatar)
	set(&u.Bio, upd.Bio)
	set(&u.Organisation, upd.Organisation)
	set(&u.Designation, upd.Designation)
	set(&u.Social.LinkedIn, upd.LinkedIn)
	set(&u.Social.Twitter, upd.Twitter)
	set(&u.Social.Website, upd.Website)
	return u
}
