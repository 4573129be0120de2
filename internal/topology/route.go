package topology

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"routeeta.transit.dev/internal/geo"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrStopNotFound  = errors.New("stop not found on route")
)

// Route is the ordered stop topology of one route. Stops are sorted by
// ascending sequence and each stop id appears once.
type Route struct {
	ID        string
	ShortName string

	stops    []Stop
	position map[int]int
}

// NewRoute sorts stops by sequence and collapses repeated stop ids, keeping
// the record with the lowest sequence and, among those, the earliest
// scheduled time.
func NewRoute(id, shortName string, stops []Stop) (*Route, error) {
	if id == "" && shortName == "" {
		return nil, errors.New("route needs an id or a short name")
	}
	if len(stops) == 0 {
		return nil, fmt.Errorf("route %q has no stops", firstNonEmpty(shortName, id))
	}

	ordered := slices.Clone(stops)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Sequence != ordered[j].Sequence {
			return ordered[i].Sequence < ordered[j].Sequence
		}
		return ordered[i].ScheduledTime.Before(ordered[j].ScheduledTime)
	})

	seen := make(map[int]bool, len(ordered))
	collapsed := ordered[:0]
	for _, s := range ordered {
		if seen[s.StopID] {
			continue
		}
		seen[s.StopID] = true
		collapsed = append(collapsed, s)
	}

	position := make(map[int]int, len(collapsed))
	for i, s := range collapsed {
		position[s.StopID] = i
	}

	return &Route{
		ID:        id,
		ShortName: shortName,
		stops:     collapsed,
		position:  position,
	}, nil
}

// Key is the name the route is primarily addressed by.
func (r *Route) Key() string {
	return firstNonEmpty(r.ShortName, r.ID)
}

// Len returns the number of distinct stops.
func (r *Route) Len() int {
	return len(r.stops)
}

// Stops returns a copy of the ordered topology.
func (r *Route) Stops() []Stop {
	return slices.Clone(r.stops)
}

// Stop looks up a stop by id.
func (r *Route) Stop(stopID int) (Stop, bool) {
	i, ok := r.position[stopID]
	if !ok {
		return Stop{}, false
	}
	return r.stops[i], true
}

// SliceByIDs returns the stops travelled from fromID to toID inclusive.
//
// When fromID comes after toID in sequence order the contiguous run between
// them is returned reversed, modelling travel against the canonical
// numbering (inbound vs outbound sharing one topology). The result always
// starts at fromID and ends at toID.
func (r *Route) SliceByIDs(fromID, toID int) ([]Stop, error) {
	i, ok := r.position[fromID]
	if !ok {
		return nil, fmt.Errorf("%w: from_stop_id %d on route %q", ErrStopNotFound, fromID, r.Key())
	}
	j, ok := r.position[toID]
	if !ok {
		return nil, fmt.Errorf("%w: to_stop_id %d on route %q", ErrStopNotFound, toID, r.Key())
	}

	if i <= j {
		return slices.Clone(r.stops[i : j+1]), nil
	}
	segment := slices.Clone(r.stops[j : i+1])
	slices.Reverse(segment)
	return segment, nil
}

// SliceByCoords snaps each coordinate to its nearest stop on the whole
// route and slices between them.
func (r *Route) SliceByCoords(from, to geo.Coordinate) ([]Stop, error) {
	start, err := geo.Nearest(from, r.stops)
	if err != nil {
		return nil, fmt.Errorf("nearest stop to origin on route %q: %w", r.Key(), err)
	}
	end, err := geo.Nearest(to, r.stops)
	if err != nil {
		return nil, fmt.Errorf("nearest stop to destination on route %q: %w", r.Key(), err)
	}
	return r.SliceByIDs(start.StopID, end.StopID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
