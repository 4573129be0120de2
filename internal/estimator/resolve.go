package estimator

import (
	"context"
	"fmt"
	"log/slog"

	"routeeta.transit.dev/internal/logging"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Delays []float64
	// Pointwise is set when the batch call failed and each context was
	// estimated on its own.
	Pointwise bool
}

// Resolve estimates all contexts with one batch call, retrying one context
// at a time when the batch fails or returns the wrong number of values.
func Resolve(ctx context.Context, est Estimator, contexts []Context) (Resolution, error) {
	if est == nil {
		return Resolution{}, ErrPredictorUnavailable
	}
	if len(contexts) == 0 {
		return Resolution{Delays: []float64{}}, nil
	}

	delays, err := est.EstimateBatch(ctx, contexts)
	if err == nil && len(delays) == len(contexts) {
		return Resolution{Delays: delays}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolution{}, ctxErr
	}

	batchErr := err
	if batchErr == nil {
		batchErr = fmt.Errorf("batch returned %d values for %d contexts", len(delays), len(contexts))
	}
	logging.LogError(logging.FromContext(ctx), "batch estimation failed, falling back to pointwise", batchErr,
		slog.String("component", "estimator"),
		slog.String("estimator", est.Name()),
		slog.Int("contexts", len(contexts)))

	delays = make([]float64, len(contexts))
	for i, c := range contexts {
		v, err := est.Estimate(ctx, c)
		if err != nil {
			return Resolution{}, fmt.Errorf("estimate stop %d: %w", c.StopID, err)
		}
		delays[i] = v
	}
	return Resolution{Delays: delays, Pointwise: true}, nil
}
