// Package eta turns a route segment and per-stop delays into a predicted
// arrival timeline.
package eta

import (
	"fmt"
	"math"
	"time"

	"routeeta.transit.dev/internal/geo"
	"routeeta.transit.dev/internal/topology"
)

// StopPrediction is one stop of the timeline.
type StopPrediction struct {
	Stop         topology.Stop
	Scheduled    time.Time
	DelayMinutes float64
	ETA          time.Time
}

// Summary describes the whole segment.
type Summary struct {
	NStops             int
	StartStopID        int
	EndStopID          int
	TotalDelayMinutes  float64
	RouteKeyUsed       string
	ReprRouteID        string
	ReprRouteShortName string
	DayOfWeek          int
	HourOfDay          int
	Estimator          string
}

// Result is a computed route ETA.
type Result struct {
	RouteKey  string
	Stops     []StopPrediction
	Waypoints []geo.Coordinate
	Polyline  string
	Summary   Summary
}

// MondayWeekday numbers days from Monday = 0 to Sunday = 6.
func MondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func roundMinutes(v float64) float64 {
	return math.Round(v*100) / 100
}

func minutes(v float64) time.Duration {
	return time.Duration(math.Round(v*60e6)) * time.Microsecond
}

// BuildETA anchors each stop's scheduled time to start's calendar date and
// adds its delay. Delays are rounded to two decimals first. There is no
// rollover past midnight: a segment crossing midnight gets times earlier
// than start on the same date.
func BuildETA(segment []topology.Stop, delays []float64, start time.Time) (Result, error) {
	if len(segment) == 0 {
		return Result{}, ErrEmptySegment
	}
	if len(segment) != len(delays) {
		return Result{}, fmt.Errorf("segment has %d stops but %d delays were estimated", len(segment), len(delays))
	}

	stops := make([]StopPrediction, len(segment))
	waypoints := make([]geo.Coordinate, len(segment))
	total := 0.0
	for i, s := range segment {
		d := roundMinutes(delays[i])
		if d < 0 || math.IsNaN(d) {
			return Result{}, fmt.Errorf("invalid delay %v for stop %d", delays[i], s.StopID)
		}
		scheduled := s.ScheduledTime.On(start)
		stops[i] = StopPrediction{
			Stop:         s,
			Scheduled:    scheduled,
			DelayMinutes: d,
			ETA:          scheduled.Add(minutes(d)),
		}
		waypoints[i] = s.Position()
		total += d
	}

	return Result{
		Stops:     stops,
		Waypoints: waypoints,
		Summary: Summary{
			NStops:            len(stops),
			StartStopID:       segment[0].StopID,
			EndStopID:         segment[len(segment)-1].StopID,
			TotalDelayMinutes: roundMinutes(total),
			DayOfWeek:         MondayWeekday(start),
			HourOfDay:         start.Hour(),
		},
	}, nil
}
