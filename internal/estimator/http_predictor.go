package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"routeeta.transit.dev/internal/logging"
)

const (
	defaultPredictorTimeout = 5 * time.Second
	maxPredictorResponse    = 4 * 1024 * 1024
)

// HTTPPredictor calls a model server that accepts
// {"instances": [[...], ...]} and answers {"predictions": [...]}.
type HTTPPredictor struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

func NewHTTPPredictor(url string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = defaultPredictorTimeout
	}
	return &HTTPPredictor{
		url:     url,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Instances: rows})
	if err != nil {
		return nil, fmt.Errorf("predictor: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("predictor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPredictorUnavailable, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "http_predictor")),
		"http_response_body")

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxPredictorResponse))
	if err != nil {
		return nil, fmt.Errorf("predictor: read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", ErrPredictorUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("predictor: status %d: %s", resp.StatusCode, string(respBytes))
	}

	var decoded predictResponse
	if err := json.Unmarshal(respBytes, &decoded); err != nil {
		return nil, fmt.Errorf("predictor: unmarshal response: %w", err)
	}
	return decoded.Predictions, nil
}
