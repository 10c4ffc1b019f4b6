package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock, *[]string) {
	var transitions []string

	clk := &clock{t: time.Unix(0, 0)}
	b := NewBreaker(cfg, func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})
	b.now = clk.now

	return b, clk, &transitions
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _, transitions := newTestBreaker(BreakerConfig{MaxFailures: 3, Cooldown: time.Minute, HalfOpenLimit: 1})

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, StateClosed, b.State(), "a success resets the count")

	b.Failure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, []string{"closed->open"}, *transitions)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clk, transitions := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, HalfOpenLimit: 2})

	b.Failure()
	clk.t = clk.t.Add(time.Minute)

	assert.True(t, b.Allow(), "first probe after cooldown")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "probe limit reached")

	b.Success()
	assert.Equal(t, StateHalfOpen, b.State())
	b.Success()
	assert.Equal(t, StateClosed, b.State())

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, *transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clk, _ := newTestBreaker(BreakerConfig{MaxFailures: 1, Cooldown: time.Minute, HalfOpenLimit: 1})

	b.Failure()
	clk.t = clk.t.Add(time.Minute)
	assert.True(t, b.Allow())

	b.Failure()
	assert.Equal(t, StateOpen, b.State())

	clk.t = clk.t.Add(30 * time.Second)
	assert.False(t, b.Allow(), "cooldown restarts when the circuit reopens")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
