package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockRevisionIncrements(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	commands := []Command{
		{Type: CommandPlay},
		{Type: CommandSeekTo, Position: 42},
		{Type: CommandSetRate, Rate: 1.5},
		{Type: CommandPause},
	}

	for i, cmd := range commands {
		state, err := c.apply(cmd, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), state.Revision, "revision must increase by exactly 1 per accepted command")
	}

	// rejected commands must not consume a revision
	_, err := c.apply(Command{Type: CommandSetRate, Rate: 100}, t0)
	require.ErrorIs(t, err, ErrInvalidRate)
	assert.Equal(t, int64(len(commands)), c.revision)

	_, err = c.apply(Command{Type: "rewind"}, t0)
	require.ErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, int64(len(commands)), c.revision)
}

func TestClockExtrapolateWhilePlaying(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	_, err := c.apply(Command{Type: CommandPlay}, t0)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, c.extrapolate(t0.Add(10*time.Second)), 1e-9)

	_, err = c.apply(Command{Type: CommandSetRate, Rate: 2.0}, t0.Add(10*time.Second))
	require.NoError(t, err)

	// rate change anchors at the extrapolated position, no jump
	assert.InDelta(t, 10.0, c.extrapolate(t0.Add(10*time.Second)), 1e-9)
	assert.InDelta(t, 20.0, c.extrapolate(t0.Add(15*time.Second)), 1e-9)
}

func TestClockExtrapolateIdempotentWhenPaused(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	_, err := c.apply(Command{Type: CommandPlay}, t0)
	require.NoError(t, err)
	_, err = c.apply(Command{Type: CommandPause}, t0.Add(30*time.Second))
	require.NoError(t, err)

	p1 := c.extrapolate(t0.Add(40 * time.Second))
	p2 := c.extrapolate(t0.Add(400 * time.Second))
	assert.Equal(t, p1, p2)
	assert.InDelta(t, 30.0, p1, 1e-9)
}

func TestClockSeekRoundTrip(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	_, err := c.apply(Command{Type: CommandPlay}, t0)
	require.NoError(t, err)

	now := t0.Add(5 * time.Second)
	state, err := c.apply(Command{Type: CommandSeekTo, Position: 120.0}, now)
	require.NoError(t, err)

	assert.Equal(t, 120.0, state.Position)
	assert.True(t, state.Playing, "seek must preserve the play flag")
	assert.Equal(t, 120.0, c.extrapolate(now), "extrapolate at the seek timestamp must return the seek target exactly")
}

func TestClockClamping(t *testing.T) {
	t0 := time.Now()
	c := newClock(600, 1.5, t0)

	state, err := c.apply(Command{Type: CommandSeekTo, Position: -5}, t0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.Position, "position is never negative")

	state, err = c.apply(Command{Type: CommandSeekTo, Position: 9999}, t0)
	require.NoError(t, err)
	assert.Equal(t, 600.0, state.Position, "position is clamped to the known duration")

	// playing past the end pins at the duration
	_, err = c.apply(Command{Type: CommandPlay}, t0)
	require.NoError(t, err)
	assert.Equal(t, 600.0, c.extrapolate(t0.Add(time.Hour)))
}

func TestClockRateBounds(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	for _, rate := range []float64{0.24, 4.01, -1, 0} {
		_, err := c.apply(Command{Type: CommandSetRate, Rate: rate}, t0)
		assert.ErrorIs(t, err, ErrInvalidRate, "rate %v must be rejected", rate)
	}

	for _, rate := range []float64{0.25, 1, 4} {
		_, err := c.apply(Command{Type: CommandSetRate, Rate: rate}, t0)
		assert.NoError(t, err, "rate %v must be accepted", rate)
	}
}

func TestClockEvaluateDrift(t *testing.T) {
	t0 := time.Now()
	c := newClock(0, 1.5, t0)

	_, err := c.apply(Command{Type: CommandPlay}, t0)
	require.NoError(t, err)

	at := t0.Add(10 * time.Second) // authoritative position 10.0

	verdict := c.evaluateDrift(10.5, at)
	assert.Equal(t, DriftWithinTolerance, verdict.Kind)

	verdict = c.evaluateDrift(15.0, at)
	assert.Equal(t, DriftAhead, verdict.Kind)
	assert.InDelta(t, 5.0, verdict.Delta, 1e-9)

	verdict = c.evaluateDrift(7.0, at)
	assert.Equal(t, DriftBehind, verdict.Kind)
	assert.InDelta(t, -3.0, verdict.Delta, 1e-9)

	// drift evaluation never mutates authoritative state
	assert.InDelta(t, 10.0, c.extrapolate(at), 1e-9)
}
