package estimator

import (
	"context"

	"routeeta.transit.dev/internal/history"
)

// TierObserver is told which aggregation tier answered each lookup.
type TierObserver func(history.Tier)

// Historical answers from the tiered mean delay table.
type Historical struct {
	table    *history.Table
	observer TierObserver
}

func NewHistorical(table *history.Table, observer TierObserver) *Historical {
	return &Historical{table: table, observer: observer}
}

func (h *Historical) Name() string { return "historical" }

// Table exposes the underlying aggregates for diagnostics.
func (h *Historical) Table() *history.Table { return h.table }

func (h *Historical) Estimate(ctx context.Context, c Context) (float64, error) {
	if h == nil || h.table == nil {
		return 0, ErrPredictorUnavailable
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, tier := h.table.Lookup(c.RouteKey, c.StopID, c.DayOfWeek, c.HourOfDay)
	if h.observer != nil {
		h.observer(tier)
	}
	return v, nil
}

func (h *Historical) EstimateBatch(ctx context.Context, contexts []Context) ([]float64, error) {
	out := make([]float64, len(contexts))
	for i, c := range contexts {
		v, err := h.Estimate(ctx, c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
