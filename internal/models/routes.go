package models

import "routeeta.transit.dev/internal/topology"

type Route struct {
	Key       string `json:"route_key"`
	ID        string `json:"route_id"`
	ShortName string `json:"route_short_name"`
	NStops    int    `json:"n_stops"`
}

func NewRoute(r *topology.Route) Route {
	return Route{
		Key:       r.Key(),
		ID:        r.ID,
		ShortName: r.ShortName,
		NStops:    r.Len(),
	}
}

type Stop struct {
	StopID               int     `json:"stop_id"`
	StopName             *string `json:"stop_name"`
	StopSequence         int     `json:"stop_sequence"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	ScheduledArrivalTime string  `json:"scheduled_arrival_time"`
}

func NewStop(s topology.Stop) Stop {
	return Stop{
		StopID:               s.StopID,
		StopName:             s.Name,
		StopSequence:         s.Sequence,
		Lat:                  s.Lat,
		Lon:                  s.Lon,
		ScheduledArrivalTime: s.ScheduledTime.String(),
	}
}

// RouteStops is the ordered topology of one route.
type RouteStops struct {
	Route Route  `json:"route"`
	Stops []Stop `json:"stops"`
}

func NewRouteStops(r *topology.Route) RouteStops {
	stops := r.Stops()
	out := make([]Stop, len(stops))
	for i, s := range stops {
		out[i] = NewStop(s)
	}
	return RouteStops{Route: NewRoute(r), Stops: out}
}

// RouteNearby is a route with its closest stop to a query point.
type RouteNearby struct {
	Route       Route   `json:"route"`
	NearestStop Stop    `json:"nearest_stop"`
	DistanceM   float64 `json:"distance_m"`
}

func NewRouteNearby(rs topology.RouteStop) RouteNearby {
	return RouteNearby{
		Route:       NewRoute(rs.Route),
		NearestStop: NewStop(rs.Stop),
		DistanceM:   rs.DistanceKm * 1000,
	}
}
