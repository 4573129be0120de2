package models

import "routeeta.transit.dev/internal/eta"

// DelayRequest is the body of POST /api/predictions/delay.
type DelayRequest struct {
	RouteKey     string   `json:"route_key"`
	StopID       *int     `json:"stop_id"`
	StopSequence *int     `json:"stop_sequence,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	DayOfWeek    *int     `json:"day_of_week,omitempty"`
	HourOfDay    *int     `json:"hour_of_day,omitempty"`
	TimestampISO *string  `json:"timestamp_iso,omitempty"`
	HolidayFlag  int      `json:"holiday_flag"`
}

// ToRequest converts the wire form. The caller checks StopID is set.
func (r DelayRequest) ToRequest() eta.DelayRequest {
	req := eta.DelayRequest{
		RouteKey:  r.RouteKey,
		Sequence:  r.StopSequence,
		Lat:       r.Lat,
		Lon:       r.Lon,
		DayOfWeek: r.DayOfWeek,
		HourOfDay: r.HourOfDay,
		Holiday:   r.HolidayFlag,
	}
	if r.StopID != nil {
		req.StopID = *r.StopID
	}
	if r.TimestampISO != nil {
		req.Timestamp = *r.TimestampISO
	}
	return req
}

type DelayResponse struct {
	RouteKey   string  `json:"route_key"`
	StopID     int     `json:"stop_id"`
	Prediction float64 `json:"prediction"`
	DayOfWeek  int     `json:"context_day_of_week"`
	HourOfDay  int     `json:"context_hour_of_day"`
	Estimator  string  `json:"estimator"`
}

func NewDelayResponse(p eta.DelayPrediction) DelayResponse {
	return DelayResponse{
		RouteKey:   p.RouteKey,
		StopID:     p.StopID,
		Prediction: p.DelayMinutes,
		DayOfWeek:  p.DayOfWeek,
		HourOfDay:  p.HourOfDay,
		Estimator:  p.Estimator,
	}
}
