package services

import (
	"math"
	"sync"
	"time"
)

const ThrottleCooldownCapSeconds = 30

const (
	ThrottleScopeLogin = "login"
	ThrottleScopePIN   = "pin"
)

type throttleEntry struct {
	failCount     int
	cooldownUntil time.Time
}

// Throttle tracks failed attempts per key and enforces a cooldown of
// min(30, 2^failures) seconds after each failure. State is in memory only.
type Throttle struct {
	mu      sync.Mutex
	entries map[string]*throttleEntry
	now     func() time.Time
}

func NewThrottle() *Throttle {
	return &Throttle{entries: make(map[string]*throttleEntry), now: time.Now}
}

func ThrottleKey(scope string, chatID int64) string {
	return scope + ":" + itoa(chatID)
}

// WaitSeconds returns how many seconds the key must wait before trying again (0 if no cooldown).
func (t *Throttle) WaitSeconds(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return 0
	}
	now := t.now()
	if now.Before(e.cooldownUntil) {
		return int(e.cooldownUntil.Sub(now).Seconds()) + 1 // round up
	}
	return 0
}

// RecordFailed increments the fail count and starts a new cooldown.
func (t *Throttle) RecordFailed(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		e = &throttleEntry{}
		t.entries[key] = e
	}
	e.failCount++
	secs := CooldownSecondsForFailCount(e.failCount)
	e.cooldownUntil = t.now().Add(time.Duration(secs) * time.Second)
	return secs
}

// RecordSuccess clears the key.
func (t *Throttle) RecordSuccess(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}
