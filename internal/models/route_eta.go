package models

import (
	"time"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/geo"
)

// RouteEtaRequest is the body of POST /api/predictions/route_eta.
// Coordinates are [lat, lon] pairs.
type RouteEtaRequest struct {
	RouteShortName string    `json:"route_short_name"`
	FromStopID     *int      `json:"from_stop_id,omitempty"`
	ToStopID       *int      `json:"to_stop_id,omitempty"`
	FromCoord      []float64 `json:"from_coord,omitempty"`
	ToCoord        []float64 `json:"to_coord,omitempty"`
	TimestampISO   *string   `json:"timestamp_iso,omitempty"`
	HolidayFlag    int       `json:"holiday_flag"`
}

// toCoordinate expects a validated pair; anything else is treated as absent.
func toCoordinate(pair []float64) *geo.Coordinate {
	if len(pair) != 2 {
		return nil
	}
	return &geo.Coordinate{Lat: pair[0], Lon: pair[1]}
}

// ToRequest converts the wire form into an eta.Request.
func (r RouteEtaRequest) ToRequest() eta.Request {
	req := eta.Request{
		RouteKey:   r.RouteShortName,
		FromStopID: r.FromStopID,
		ToStopID:   r.ToStopID,
		FromCoord:  toCoordinate(r.FromCoord),
		ToCoord:    toCoordinate(r.ToCoord),
		Holiday:    r.HolidayFlag,
	}
	if r.TimestampISO != nil {
		req.Timestamp = *r.TimestampISO
	}
	return req
}

type StopPrediction struct {
	StopID               int     `json:"stop_id"`
	StopName             *string `json:"stop_name"`
	StopSequence         int     `json:"stop_sequence"`
	Lat                  float64 `json:"lat"`
	Lon                  float64 `json:"lon"`
	ScheduledArrivalTime string  `json:"scheduled_arrival_time"`
	PredictedDelay       float64 `json:"predicted_delay_minutes"`
	PredictedETAISO      string  `json:"predicted_eta_iso"`
}

type RouteEtaSummary struct {
	NStops             int     `json:"n_stops"`
	StartStopID        int     `json:"start_stop_id"`
	EndStopID          int     `json:"end_stop_id"`
	TotalDelayMinutes  float64 `json:"total_predicted_delay_minutes"`
	RouteKeyUsed       string  `json:"route_key_used"`
	ReprRouteID        string  `json:"repr_route_id"`
	ReprRouteShortName string  `json:"repr_route_short_name"`
	DayOfWeek          int     `json:"context_day_of_week"`
	HourOfDay          int     `json:"context_hour_of_day"`
	Estimator          string  `json:"estimator"`
}

type RouteEtaResponse struct {
	RouteShortName string           `json:"route_short_name"`
	Waypoints      [][2]float64     `json:"waypoints"`
	Polyline       string           `json:"polyline"`
	Stops          []StopPrediction `json:"stops"`
	Summary        RouteEtaSummary  `json:"summary"`
}

// NewRouteEtaResponse renders a computed result. ETAs carry the offset of
// the zone the request was evaluated in.
func NewRouteEtaResponse(result eta.Result) RouteEtaResponse {
	stops := make([]StopPrediction, len(result.Stops))
	for i, p := range result.Stops {
		stops[i] = StopPrediction{
			StopID:               p.Stop.StopID,
			StopName:             p.Stop.Name,
			StopSequence:         p.Stop.Sequence,
			Lat:                  p.Stop.Lat,
			Lon:                  p.Stop.Lon,
			ScheduledArrivalTime: p.Stop.ScheduledTime.String(),
			PredictedDelay:       p.DelayMinutes,
			PredictedETAISO:      p.ETA.Format(time.RFC3339Nano),
		}
	}

	waypoints := make([][2]float64, len(result.Waypoints))
	for i, w := range result.Waypoints {
		waypoints[i] = [2]float64{w.Lat, w.Lon}
	}

	s := result.Summary
	return RouteEtaResponse{
		RouteShortName: result.RouteKey,
		Waypoints:      waypoints,
		Polyline:       result.Polyline,
		Stops:          stops,
		Summary: RouteEtaSummary{
			NStops:             s.NStops,
			StartStopID:        s.StartStopID,
			EndStopID:          s.EndStopID,
			TotalDelayMinutes:  s.TotalDelayMinutes,
			RouteKeyUsed:       s.RouteKeyUsed,
			ReprRouteID:        s.ReprRouteID,
			ReprRouteShortName: s.ReprRouteShortName,
			DayOfWeek:          s.DayOfWeek,
			HourOfDay:          s.HourOfDay,
			Estimator:          s.Estimator,
		},
	}
}
