package topology

import (
	"fmt"
	"strings"

	"routeeta.transit.dev/internal/geo"
)

// Index resolves route keys to topologies. A route is reachable by its
// short name and by its internal id. It is built once and never mutated.
type Index struct {
	routes      []*Route
	byShortName map[string]*Route
	byID        map[string]*Route
	points      *geo.PointIndex
}

// NewIndex builds an Index. Route ids must be unique; when two routes share
// a short name the first one registered keeps it.
func NewIndex(routes []*Route) (*Index, error) {
	idx := &Index{
		routes:      make([]*Route, 0, len(routes)),
		byShortName: make(map[string]*Route, len(routes)),
		byID:        make(map[string]*Route, len(routes)),
	}

	var points []geo.IndexedPoint
	for _, r := range routes {
		if r == nil {
			continue
		}
		if r.ID != "" {
			if _, dup := idx.byID[r.ID]; dup {
				return nil, fmt.Errorf("duplicate route id %q", r.ID)
			}
			idx.byID[r.ID] = r
		}
		if r.ShortName != "" {
			if _, taken := idx.byShortName[r.ShortName]; !taken {
				idx.byShortName[r.ShortName] = r
			}
		}
		idx.routes = append(idx.routes, r)

		for _, s := range r.stops {
			points = append(points, geo.IndexedPoint{
				Ref:        len(idx.routes) - 1,
				RouteKey:   r.Key(),
				StopID:     s.StopID,
				Coordinate: s.Position(),
			})
		}
	}

	if len(idx.routes) == 0 {
		return nil, fmt.Errorf("topology has no routes")
	}
	idx.points = geo.NewPointIndex(points)
	return idx, nil
}

// Resolve looks a route up by short name, then by internal id.
func (idx *Index) Resolve(routeKey string) (*Route, error) {
	key := strings.TrimSpace(routeKey)
	if r, ok := idx.byShortName[key]; ok {
		return r, nil
	}
	if r, ok := idx.byID[key]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q matches neither a route short name nor a route id", ErrRouteNotFound, key)
}

// Routes returns routes in load order.
func (idx *Index) Routes() []*Route {
	out := make([]*Route, len(idx.routes))
	copy(out, idx.routes)
	return out
}

// StopCount is the total number of distinct route/stop pairs.
func (idx *Index) StopCount() int {
	return idx.points.Len()
}

// Bounds is the box covering every stop of every route.
func (idx *Index) Bounds() geo.CoordinateBounds {
	return idx.points.Bounds()
}

// RouteStop is one stop of one route near a query point.
type RouteStop struct {
	Route      *Route
	Stop       Stop
	DistanceKm float64
}

// RoutesNear returns, for every route with a stop within radiusKm of c, its
// closest such stop. Results are ordered by distance.
func (idx *Index) RoutesNear(c geo.Coordinate, radiusKm float64) []RouteStop {
	seen := make(map[int]bool)
	var out []RouteStop
	for _, m := range idx.points.Within(c, radiusKm) {
		if seen[m.Ref] {
			continue
		}
		r := idx.routes[m.Ref]
		stop, ok := r.Stop(m.StopID)
		if !ok {
			continue
		}
		seen[m.Ref] = true
		out = append(out, RouteStop{Route: r, Stop: stop, DistanceKm: m.DistanceKm})
	}
	return out
}
