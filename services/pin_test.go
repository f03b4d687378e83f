package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPINGate(t *testing.T) {
	_, err := NewPINGate("", nil)
	assert.Error(t, err)
	_, err = NewPINGate("12a4", nil)
	assert.Error(t, err)

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	th := NewThrottle()
	th.now = func() time.Time { return now }
	gate, err := NewPINGate("1881", th)
	require.NoError(t, err)

	wait, err := gate.Check(5, "0000")
	assert.ErrorIs(t, err, ErrWrongPIN)
	assert.Equal(t, 2, wait)

	wait, err = gate.Check(5, "1881")
	assert.ErrorIs(t, err, ErrPINLocked, "the right PIN is refused during cooldown")
	assert.Positive(t, wait)

	_, err = gate.Check(6, "1881")
	assert.NoError(t, err, "other chats are not locked")

	now = now.Add(3 * time.Second)
	_, err = gate.Check(5, " 1881 ")
	assert.NoError(t, err)
	assert.Zero(t, th.WaitSeconds(ThrottleKey(ThrottleScopePIN, 5)))
}
