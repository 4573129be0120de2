package eta

import (
	"errors"

	"routeeta.transit.dev/internal/estimator"
	"routeeta.transit.dev/internal/topology"
)

var (
	ErrRouteNotFound        = topology.ErrRouteNotFound
	ErrStopNotFound         = topology.ErrStopNotFound
	ErrPredictorUnavailable = estimator.ErrPredictorUnavailable

	ErrEmptySegment     = errors.New("no stops found for the given route segment")
	ErrMissingEndpoints = errors.New("either from_stop_id/to_stop_id or from_coord/to_coord must be provided")
	ErrInvalidRequest   = errors.New("invalid request")
)

// IsClientError reports whether err was caused by the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRouteNotFound) ||
		errors.Is(err, ErrStopNotFound) ||
		errors.Is(err, ErrEmptySegment) ||
		errors.Is(err, ErrMissingEndpoints) ||
		errors.Is(err, ErrInvalidRequest)
}
