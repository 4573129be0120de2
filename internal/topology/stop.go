package topology

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"routeeta.transit.dev/internal/geo"
)

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a local wall-clock time with second precision.
type TimeOfDay struct {
	seconds int
}

// NewTimeOfDay builds a TimeOfDay, rejecting out of range fields.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day out of range: %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay{seconds: hour*3600 + minute*60 + second}, nil
}

// TimeOfDayFromDuration folds a duration since midnight onto one day, so
// GTFS times past 24:00:00 map to the following morning's wall clock.
func TimeOfDayFromDuration(d time.Duration) TimeOfDay {
	s := int(d / time.Second)
	s %= secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return TimeOfDay{seconds: s}
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: expected HH:MM:SS or HH:MM", s)
	}
	fields := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		fields[i] = v
	}
	return NewTimeOfDay(fields[0], fields[1], fields[2])
}

func (t TimeOfDay) Hour() int   { return t.seconds / 3600 }
func (t TimeOfDay) Minute() int { return (t.seconds % 3600) / 60 }
func (t TimeOfDay) Second() int { return t.seconds % 60 }

// SinceMidnight returns the offset of t from 00:00:00.
func (t TimeOfDay) SinceMidnight() time.Duration {
	return time.Duration(t.seconds) * time.Second
}

// On anchors t to the calendar date of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, day.Location())
}

func (t TimeOfDay) Before(u TimeOfDay) bool { return t.seconds < u.seconds }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Stop is one scheduled call of a route. Values are immutable once loaded.
type Stop struct {
	StopID        int
	Name          *string
	Sequence      int
	Lat           float64
	Lon           float64
	ScheduledTime TimeOfDay
}

// Position implements geo.Locatable.
func (s Stop) Position() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lon: s.Lon}
}

// DisplayName returns the stop name or "" when it has none.
func (s Stop) DisplayName() string {
	if s.Name == nil {
		return ""
	}
	return *s.Name
}
