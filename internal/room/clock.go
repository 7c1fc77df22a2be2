package room

import (
	"time"

	"github.com/cinematogether/server/internal/domain"
)

const (
	MinPlaybackRate = 0.25
	MaxPlaybackRate = 4.0
)

type CommandType string

const (
	CommandPlay    CommandType = "play"
	CommandPause   CommandType = "pause"
	CommandSeekTo  CommandType = "seek_to"
	CommandSetRate CommandType = "set_rate"
)

// Command is a host-issued playback transition. Position is read for
// seek_to, Rate for set_rate.
type Command struct {
	Type     CommandType `json:"type"`
	Position float64     `json:"position"`
	Rate     float64     `json:"rate"`
}

type DriftKind string

const (
	DriftWithinTolerance DriftKind = "within_tolerance"
	DriftAhead           DriftKind = "ahead"
	DriftBehind          DriftKind = "behind"
)

// DriftVerdict reports how far an observed client position diverged from the
// authoritative extrapolation at the same instant. Delta is signed, positive
// when the client ran ahead.
type DriftVerdict struct {
	Kind  DriftKind
	Delta float64
}

// clock owns the single authoritative PlaybackState of a room. It is not
// goroutine-safe; the owning session serializes access.
type clock struct {
	position  float64
	playing   bool
	rate      float64
	updatedAt time.Time
	revision  int64
	duration  float64 // known media length in seconds, 0 = unknown
	tolerance float64
}

func newClock(duration, tolerance float64, now time.Time) *clock {
	return &clock{
		rate:      1.0,
		updatedAt: now,
		duration:  duration,
		tolerance: tolerance,
	}
}

// apply commits a playback command. Every accepted command bumps the
// revision by exactly one. Pause and rate changes re-anchor the position at
// its extrapolated value so the apparent position never jumps.
func (c *clock) apply(cmd Command, now time.Time) (domain.PlaybackState, error) {
	switch cmd.Type {
	case CommandPlay:
		c.position = c.extrapolate(now)
		c.playing = true
	case CommandPause:
		c.position = c.extrapolate(now)
		c.playing = false
	case CommandSeekTo:
		c.position = c.clamp(cmd.Position)
	case CommandSetRate:
		if cmd.Rate < MinPlaybackRate || cmd.Rate > MaxPlaybackRate {
			return domain.PlaybackState{}, ErrInvalidRate
		}
		c.position = c.extrapolate(now)
		c.rate = cmd.Rate
	default:
		return domain.PlaybackState{}, ErrInvalidCommand
	}

	c.updatedAt = now
	c.revision++

	return c.snapshot(), nil
}

// extrapolate returns the authoritative position at the given instant
// without mutating state. While paused it is independent of the timestamp.
func (c *clock) extrapolate(now time.Time) float64 {
	if !c.playing {
		return c.position
	}

	return c.clamp(c.position + c.rate*now.Sub(c.updatedAt).Seconds())
}

// evaluateDrift compares a client-reported position against the
// authoritative extrapolation at the report timestamp. It never mutates
// state; acting on the verdict is the session's call.
func (c *clock) evaluateDrift(observed float64, observedAt time.Time) DriftVerdict {
	delta := observed - c.extrapolate(observedAt)

	switch {
	case delta > c.tolerance:
		return DriftVerdict{Kind: DriftAhead, Delta: delta}
	case delta < -c.tolerance:
		return DriftVerdict{Kind: DriftBehind, Delta: delta}
	default:
		return DriftVerdict{Kind: DriftWithinTolerance, Delta: delta}
	}
}

func (c *clock) clamp(position float64) float64 {
	if position < 0 {
		return 0
	}
	if c.duration > 0 && position > c.duration {
		return c.duration
	}

	return position
}

func (c *clock) snapshot() domain.PlaybackState {
	return domain.PlaybackState{
		Position:  c.position,
		Playing:   c.playing,
		Rate:      c.rate,
		UpdatedAt: c.updatedAt.UnixMilli(),
		Revision:  c.revision,
	}
}
