package services

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PINGate guards the admin panel with a shared numeric PIN. It is a convenience lock
// for the staff device, not access control; the API still authorizes every request.
type PINGate struct {
	hash     []byte
	throttle *Throttle
}

// NewPINGate keeps only a bcrypt hash of pin.
func NewPINGate(pin string, throttle *Throttle) (*PINGate, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return nil, fmt.Errorf("admin PIN is empty")
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("admin PIN must be digits only")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin PIN: %w", err)
	}
	if throttle == nil {
		throttle = NewThrottle()
	}
	return &PINGate{hash: hash, throttle: throttle}, nil
}

// Check verifies pin for chatID. While a cooldown runs it returns ErrPINLocked and the
// seconds left without looking at pin.
func (g *PINGate) Check(chatID int64, pin string) (wait int, err error) {
	key := ThrottleKey(ThrottleScopePIN, chatID)
	if wait := g.throttle.WaitSeconds(key); wait > 0 {
		return wait, ErrPINLocked
	}
	if bcrypt.CompareHashAndPassword(g.hash, []byte(strings.TrimSpace(pin))) != nil {
		return g.throttle.RecordFailed(key), ErrWrongPIN
	}
	g.throttle.RecordSuccess(key)
	return 0, nil
}
