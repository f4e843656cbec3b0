package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

const (
	// MsgGeneric is used when the server failed without saying why.
	MsgGeneric = "An error occurred"
	// MsgUnexpected is used when no usable response was received.
	MsgUnexpected = "An unexpected error occurred"
)

// ErrSessionExpired is returned after the backend rejected the stored token.
// The token has already been cleared and the unauthorized hook has run.
var ErrSessionExpired = errors.New("your session has expired, please sign in again")

// Error is the normalized failure of an API call.
type Error struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is safe to show to the user.
	Message string
	// Err is the underlying transport or decoding error, if any.
	Err error
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired.Error()
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return MsgUnexpected
}

// normalizeError turns a failed response into an *Error, preferring the body's
// "message" field, then "error", then the generic text.
func normalizeError(status int, body []byte) *Error {
	msg := MsgGeneric
	if gjson.ValidBytes(body) {
		for _, key := range []string{"message", "error"} {
			if r := gjson.GetBytes(body, key); r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
				msg = r.Str
				break
			}
		}
	}
	return &Error{Status: status, Message: msg}
}

func transportError(err error) *Error {
	return &Error{Message: MsgUnexpected, Err: err}
}

// validationError converts validator output into a user-facing *Error.
func validationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Message: MsgUnexpected, Err: err}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "url":
		msg = fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return &Error{Message: msg, Err: err}
}
