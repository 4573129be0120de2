// Package estimator predicts per-stop delay minutes, either from the
// historical aggregates or from a remote regression model.
package estimator

import (
	"context"
	"errors"
)

var ErrPredictorUnavailable = errors.New("delay predictor unavailable")

// Context is the feature context of one stop on a requested segment.
type Context struct {
	RouteKey  string
	StopID    int
	Sequence  int
	DayOfWeek int
	HourOfDay int
	Holiday   int
	Lat       float64
	Lon       float64
}

// Estimator returns delay minutes, one per context and in the same order.
// Returned values are never negative.
type Estimator interface {
	EstimateBatch(ctx context.Context, contexts []Context) ([]float64, error)
	Estimate(ctx context.Context, c Context) (float64, error)
	Name() string
}
