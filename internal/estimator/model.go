package estimator

import (
	"context"
	"fmt"
	"math"
)

// Predictor is a trained regression model taking rows of
// [route, sequence, day_of_week, hour_of_day, holiday, lat, lon].
type Predictor interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
}

// FeatureWidth is the number of columns in a feature row.
const FeatureWidth = 7

// ModelBacked delegates to a Predictor.
type ModelBacked struct {
	predictor Predictor
	encoder   *LabelEncoder
}

// NewModelBacked builds a model estimator; encoder may be nil.
func NewModelBacked(predictor Predictor, encoder *LabelEncoder) *ModelBacked {
	return &ModelBacked{predictor: predictor, encoder: encoder}
}

func (m *ModelBacked) Name() string { return "model" }

// Features returns the model input row for c.
func (m *ModelBacked) Features(c Context) []float64 {
	return []float64{
		float64(m.encoder.Encode(c.RouteKey)),
		float64(c.Sequence),
		float64(c.DayOfWeek),
		float64(c.HourOfDay),
		float64(c.Holiday),
		c.Lat,
		c.Lon,
	}
}

func (m *ModelBacked) EstimateBatch(ctx context.Context, contexts []Context) ([]float64, error) {
	if m == nil || m.predictor == nil {
		return nil, ErrPredictorUnavailable
	}
	rows := make([][]float64, len(contexts))
	for i, c := range contexts {
		rows[i] = m.Features(c)
	}
	preds, err := m.predictor.Predict(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("predictor returned %d values for %d rows", len(preds), len(rows))
	}
	out := make([]float64, len(preds))
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("predictor returned non-finite value for row %d", i)
		}
		out[i] = math.Max(p, 0)
	}
	return out, nil
}

func (m *ModelBacked) Estimate(ctx context.Context, c Context) (float64, error) {
	out, err := m.EstimateBatch(ctx, []Context{c})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}
