package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an immutable access/refresh token pair. Refreshing produces a new Session.
type Session struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ExpiresAt reads the exp claim of the access token without verifying it. The signature
// is the server's business; the client only uses this for display. ok is false for
// opaque tokens or tokens without exp.
func (s *Session) ExpiresAt() (time.Time, bool) {
	if s == nil || s.Access == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Access, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
