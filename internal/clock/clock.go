// Package clock abstracts the current time so request handling can be
// tested deterministically, and parses the request start instants.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a controllable, thread-safe Clock for tests.
type MockClock struct {
	currentTime time.Time
	mu          sync.Mutex
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{currentTime: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentTime
}

// Set changes the mock clock's current time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = t
}

// Advance moves the mock clock by d; negative values move it backward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentTime = m.currentTime.Add(d)
}

// LocalClock reports the wrapped clock's time in a fixed location, so
// "now" lands on the service's local calendar day.
type LocalClock struct {
	Clock    Clock
	Location *time.Location
}

func (l LocalClock) Now() time.Time {
	now := l.Clock.Now()
	if l.Location == nil {
		return now
	}
	return now.In(l.Location)
}

// PinnedClock reads "now" from an environment variable when it is set,
// which lets demo deployments replay a fixed service day. It falls back to
// the system time.
type PinnedClock struct {
	envVar   string
	location *time.Location
}

func NewPinnedClock(envVar string, location *time.Location) *PinnedClock {
	return &PinnedClock{envVar: envVar, location: location}
}

func (p *PinnedClock) Now() time.Time {
	raw := os.Getenv(p.envVar)
	if raw == "" {
		return time.Now()
	}
	t, err := ParseInstant(raw, p.location)
	if err != nil {
		slog.Warn("pinned clock: invalid time, falling back to system time",
			slog.String("envVar", p.envVar), slog.String("value", raw))
		return time.Now()
	}
	return t
}

var ErrEmptyInstant = errors.New("empty timestamp")

// ParseInstant parses an ISO-8601 timestamp. Values without a zone offset
// are read in loc; a nil loc means UTC.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyInstant
	}
	if loc == nil {
		loc = time.UTC
	}

	zoned := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04Z07:00",
	}
	for _, layout := range zoned {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	naive := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range naive {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time %q: expected ISO-8601 such as 2006-01-02T15:04:05Z07:00, 2006-01-02T15:04:05 or 2006-01-02", s)
}

// StartTime parses raw, falling back to c.Now() when raw is empty or not a
// valid timestamp. The bool reports whether raw was used.
func StartTime(c Clock, raw string, loc *time.Location) (time.Time, bool) {
	if t, err := ParseInstant(raw, loc); err == nil {
		return t, true
	}
	now := c.Now()
	if loc != nil {
		now = now.In(loc)
	}
	return now, false
}
