package api

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// UnreachableMessage is shown when no response body came back from the server.
const UnreachableMessage = "could not reach server"

var (
	// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts.
	ErrUnreachable = errors.New(UnreachableMessage)
	// ErrSessionExpired is returned once refresh failed or a replayed request got 401 again.
	// Both tokens have been cleared and the user has to log in again.
	ErrSessionExpired = errors.New("session expired")
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrInvalidID      = errors.New("invalid id")
)

const maxMessageLen = 300

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Body    []byte
	Message string
	err     error
}

func newError(status int, body []byte) *Error {
	return &Error{Status: status, Body: body, Message: normalize(body)}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Message turns any error from this package into one human-readable line: the
// server's first field message when there is one, UnreachableMessage when no body
// came back, the plain error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message == "" {
			return UnreachableMessage
		}
		return apiErr.Message
	}
	if errors.Is(err, ErrUnreachable) {
		return UnreachableMessage
	}
	return err.Error()
}

// normalize extracts a display message from an error body. Field order is preserved,
// so {"name": ["required"], "price": [...]} yields "required".
func normalize(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if !gjson.ValidBytes(trimmed) {
		return truncate(string(trimmed))
	}
	res := gjson.ParseBytes(trimmed)
	switch {
	case res.Type == gjson.String:
		return truncate(res.String())
	case res.IsArray():
		if first := res.Get("0"); first.Exists() {
			return truncate(first.String())
		}
		return ""
	case res.IsObject():
		var first gjson.Result
		res.ForEach(func(_, v gjson.Result) bool {
			first = v
			return false
		})
		if !first.Exists() {
			return ""
		}
		if first.IsArray() {
			if m := first.Get("0"); m.Exists() {
				return truncate(m.String())
			}
		}
		if first.Type == gjson.String {
			return truncate(first.String())
		}
		return truncate(res.Raw)
	}
	return truncate(res.String())
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageLen {
		return s
	}
	return string(r[:maxMessageLen]) + "…"
}

// unwrapList accepts both a bare JSON array and a paginated {"results": [...]} envelope.
func unwrapList(raw []byte) []byte {
	if results := gjson.GetBytes(raw, "results"); results.IsArray() {
		return []byte(results.Raw)
	}
	return raw
}
