package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"routeeta.transit.dev/internal/logging"
)

// flexInt accepts either a JSON number or a numeric string; route index
// exports are not consistent about which one they write.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected integer, got %s", b)
	}
	if v != float64(int(v)) {
		return fmt.Errorf("expected integer, got %s", b)
	}
	f.value, f.set = int(v), true
	return nil
}

type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %s", b)
	}
	f.value, f.set = v, true
	return nil
}

// indexedStop is one entry of a route index file. Both lat/lon and
// stop_lat/stop_lon spellings are accepted.
type indexedStop struct {
	RouteID       string    `json:"route_id"`
	StopID        flexInt   `json:"stop_id"`
	StopName      *string   `json:"stop_name"`
	StopSequence  flexInt   `json:"stop_sequence"`
	Lat           flexFloat `json:"lat"`
	Lon           flexFloat `json:"lon"`
	StopLat       flexFloat `json:"stop_lat"`
	StopLon       flexFloat `json:"stop_lon"`
	ScheduledTime string    `json:"scheduled_arrival_time"`
}

func (s indexedStop) toStop(routeKey string, position int) (Stop, error) {
	if !s.StopID.set {
		return Stop{}, fmt.Errorf("route %q entry %d: missing stop_id", routeKey, position)
	}
	lat, lon := s.Lat, s.Lon
	if !lat.set {
		lat = s.StopLat
	}
	if !lon.set {
		lon = s.StopLon
	}
	if !lat.set || !lon.set {
		return Stop{}, fmt.Errorf("route %q stop %d: missing coordinates", routeKey, s.StopID.value)
	}
	sequence := position
	if s.StopSequence.set {
		sequence = s.StopSequence.value
	}
	scheduled, err := ParseTimeOfDay(s.ScheduledTime)
	if err != nil {
		return Stop{}, fmt.Errorf("route %q stop %d: %w", routeKey, s.StopID.value, err)
	}
	return Stop{
		StopID:        s.StopID.value,
		Name:          s.StopName,
		Sequence:      sequence,
		Lat:           lat.value,
		Lon:           lon.value,
		ScheduledTime: scheduled,
	}, nil
}

// LoadRouteIndex reads a JSON object mapping route short name to its stop
// list. A stop entry may carry route_id, which becomes the route's internal
// id; otherwise the short name doubles as the id.
func LoadRouteIndex(r io.Reader) (*Index, error) {
	var raw map[string][]indexedStop
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed route index: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	routes := make([]*Route, 0, len(keys))
	for _, key := range keys {
		entries := raw[key]
		stops := make([]Stop, 0, len(entries))
		routeID := ""
		for i, e := range entries {
			stop, err := e.toStop(key, i)
			if err != nil {
				return nil, fmt.Errorf("malformed route index: %w", err)
			}
			if routeID == "" {
				routeID = e.RouteID
			}
			stops = append(stops, stop)
		}
		if routeID == "" {
			routeID = key
		}
		route, err := NewRoute(routeID, key, stops)
		if err != nil {
			return nil, fmt.Errorf("malformed route index: %w", err)
		}
		routes = append(routes, route)
	}

	return NewIndex(routes)
}

// LoadRouteIndexFile opens path and calls LoadRouteIndex.
func LoadRouteIndexFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("route index file not found at %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(f,
		slog.Default().With(slog.String("component", "topology_loader")),
		"route_index_file")

	return LoadRouteIndex(f)
}
