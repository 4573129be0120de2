package eta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"
	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/geo"
	"routeeta.transit.dev/internal/history"
	"routeeta.transit.dev/internal/logging"
	"routeeta.transit.dev/internal/metrics"
	"routeeta.transit.dev/internal/topology"
)

// Request selects a segment of a route and the time context for it. Stop
// ids take precedence over coordinates when both pairs are complete.
type Request struct {
	RouteKey   string
	FromStopID *int
	ToStopID   *int
	FromCoord  *geo.Coordinate
	ToCoord    *geo.Coordinate
	Timestamp  string
	Holiday    int
}

// Representatives maps a requested route key to the canonical
// (route id, short name) pair delays are grouped by.
type Representatives interface {
	Representative(routeKey string) (history.RouteKey, bool)
}

// Service computes route ETAs. It holds only immutable shared state and is
// safe for concurrent use.
type Service struct {
	Topology        *topology.Index
	Estimator       estimator.Estimator
	Representatives Representatives
	Clock           clock.Clock
	Location        *time.Location
	Metrics         *metrics.Metrics
}

func (s *Service) now() clock.Clock {
	if s.Clock == nil {
		return clock.RealClock{}
	}
	return s.Clock
}

func validateHoliday(flag int) error {
	if flag != 0 && flag != 1 {
		return fmt.Errorf("%w: holiday_flag must be 0 or 1, got %d", ErrInvalidRequest, flag)
	}
	return nil
}

// segment resolves the stops travelled by req.
func (s *Service) segment(req Request) (*topology.Route, []topology.Stop, error) {
	route, err := s.Topology.Resolve(req.RouteKey)
	if err != nil {
		return nil, nil, err
	}

	var stops []topology.Stop
	switch {
	case req.FromStopID != nil && req.ToStopID != nil:
		stops, err = route.SliceByIDs(*req.FromStopID, *req.ToStopID)
	case req.FromCoord != nil && req.ToCoord != nil:
		stops, err = route.SliceByCoords(*req.FromCoord, *req.ToCoord)
	default:
		return nil, nil, ErrMissingEndpoints
	}
	if err != nil {
		return nil, nil, err
	}
	if len(stops) == 0 {
		return nil, nil, ErrEmptySegment
	}
	return route, stops, nil
}

// Compute runs the full pipeline for one request.
func (s *Service) Compute(ctx context.Context, req Request) (result Result, err error) {
	defer func() { s.Metrics.ObserveOutcome(outcome(err)) }()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := validateHoliday(req.Holiday); err != nil {
		return Result{}, err
	}
	if s.Topology == nil || s.Estimator == nil {
		return Result{}, ErrPredictorUnavailable
	}

	routeKey := strings.TrimSpace(req.RouteKey)
	route, stops, err := s.segment(req)
	if err != nil {
		return Result{}, err
	}

	start, _ := clock.StartTime(s.now(), req.Timestamp, s.Location)
	dow, hour := MondayWeekday(start), start.Hour()

	contexts := make([]estimator.Context, len(stops))
	for i, st := range stops {
		contexts[i] = estimator.Context{
			RouteKey:  routeKey,
			StopID:    st.StopID,
			Sequence:  st.Sequence,
			DayOfWeek: dow,
			HourOfDay: hour,
			Holiday:   req.Holiday,
			Lat:       st.Lat,
			Lon:       st.Lon,
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	began := time.Now()
	resolution, err := estimator.Resolve(ctx, s.Estimator, contexts)
	if err != nil {
		return Result{}, err
	}
	s.Metrics.ObserveEstimation(s.Estimator.Name(), len(contexts), resolution.Pointwise, time.Since(began))

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	result, err = BuildETA(stops, resolution.Delays, start)
	if err != nil {
		return Result{}, err
	}

	result.RouteKey = routeKey
	result.Polyline = encodeWaypoints(result.Waypoints)
	result.Summary.RouteKeyUsed = routeKey
	result.Summary.Estimator = s.Estimator.Name()
	result.Summary.ReprRouteID, result.Summary.ReprRouteShortName = s.representative(routeKey, route)

	logging.LogOperation(logging.FromContext(ctx), "route_eta_computed",
		slog.String("route_key", routeKey),
		slog.Int("stops", result.Summary.NStops),
		slog.Float64("total_delay_minutes", result.Summary.TotalDelayMinutes),
		slog.Bool("pointwise", resolution.Pointwise))
	return result, nil
}

func (s *Service) representative(routeKey string, route *topology.Route) (string, string) {
	if s.Representatives != nil {
		if rk, ok := s.Representatives.Representative(routeKey); ok {
			return rk.ID, rk.ShortName
		}
	}
	return route.ID, route.ShortName
}

func encodeWaypoints(points []geo.Coordinate) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lon}
	}
	return string(polyline.EncodeCoords(coords))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case IsClientError(err):
		return metrics.OutcomeClientError
	case errors.Is(err, ErrPredictorUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}

// DelayRequest asks for the delay at a single stop. Sequence and
// coordinates left unset are taken from the route topology when the stop
// is on it. DayOfWeek and HourOfDay override the values derived from
// Timestamp.
type DelayRequest struct {
	RouteKey  string
	StopID    int
	Sequence  *int
	Lat       *float64
	Lon       *float64
	DayOfWeek *int
	HourOfDay *int
	Timestamp string
	Holiday   int
}

// DelayPrediction is the answer to a DelayRequest.
type DelayPrediction struct {
	RouteKey     string
	StopID       int
	DelayMinutes float64
	DayOfWeek    int
	HourOfDay    int
	Estimator    string
}

// PredictDelay estimates the delay at one stop.
func (s *Service) PredictDelay(ctx context.Context, req DelayRequest) (DelayPrediction, error) {
	if err := ctx.Err(); err != nil {
		return DelayPrediction{}, err
	}
	routeKey := strings.TrimSpace(req.RouteKey)
	if routeKey == "" {
		return DelayPrediction{}, fmt.Errorf("%w: route_key is required", ErrInvalidRequest)
	}
	if err := validateHoliday(req.Holiday); err != nil {
		return DelayPrediction{}, err
	}
	if s.Estimator == nil {
		return DelayPrediction{}, ErrPredictorUnavailable
	}

	c := estimator.Context{RouteKey: routeKey, StopID: req.StopID, Holiday: req.Holiday}
	if s.Topology != nil {
		if route, err := s.Topology.Resolve(routeKey); err == nil {
			if stop, ok := route.Stop(req.StopID); ok {
				c.Sequence, c.Lat, c.Lon = stop.Sequence, stop.Lat, stop.Lon
			}
		}
	}
	if req.Sequence != nil {
		c.Sequence = *req.Sequence
	}
	if req.Lat != nil {
		c.Lat = *req.Lat
	}
	if req.Lon != nil {
		c.Lon = *req.Lon
	}

	start, _ := clock.StartTime(s.now(), req.Timestamp, s.Location)
	c.DayOfWeek, c.HourOfDay = MondayWeekday(start), start.Hour()
	if req.DayOfWeek != nil {
		if *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
			return DelayPrediction{}, fmt.Errorf("%w: day_of_week must be 0..6, got %d", ErrInvalidRequest, *req.DayOfWeek)
		}
		c.DayOfWeek = *req.DayOfWeek
	}
	if req.HourOfDay != nil {
		if *req.HourOfDay < 0 || *req.HourOfDay > 23 {
			return DelayPrediction{}, fmt.Errorf("%w: hour_of_day must be 0..23, got %d", ErrInvalidRequest, *req.HourOfDay)
		}
		c.HourOfDay = *req.HourOfDay
	}

	v, err := s.Estimator.Estimate(ctx, c)
	if err != nil {
		return DelayPrediction{}, err
	}
	return DelayPrediction{
		RouteKey:     routeKey,
		StopID:       req.StopID,
		DelayMinutes: roundMinutes(v),
		DayOfWeek:    c.DayOfWeek,
		HourOfDay:    c.HourOfDay,
		Estimator:    s.Estimator.Name(),
	}, nil
}
