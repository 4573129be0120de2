package restapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/logging"
)

// invalidAPIKeyResponse sends a 401 Unauthorized response
func (api *RestAPI) invalidAPIKeyResponse(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusUnauthorized, "permission denied")
}

// serverErrorResponse logs err and sends a generic 500.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(api.requestLogger(r), "request failed", err,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))
	api.sendError(w, r, http.StatusInternalServerError, "Internal server error")
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string) {
	setJSONResponseType(&w)
	w.WriteHeader(http.StatusBadRequest)

	response := struct {
		Code        int                 `json:"code"`
		CurrentTime int64               `json:"currentTime"`
		Text        string              `json:"text"`
		Version     int                 `json:"version"`
		FieldErrors map[string][]string `json:"fieldErrors"`
	}{
		Code:        http.StatusBadRequest,
		CurrentTime: api.currentTime(),
		Text:        "invalid request",
		Version:     2,
		FieldErrors: fieldErrors,
	}
	api.encode(w, r, response)
}

// computeErrorResponse maps an error from the ETA service to a status.
// Client errors carry their message; anything else is a 500 with a
// generic message.
func (api *RestAPI) computeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, eta.ErrRouteNotFound), errors.Is(err, eta.ErrStopNotFound):
		api.sendError(w, r, http.StatusNotFound, err.Error())
	case eta.IsClientError(err):
		api.sendError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, eta.ErrPredictorUnavailable):
		logging.LogError(api.requestLogger(r), "predictor unavailable", err)
		api.sendError(w, r, http.StatusServiceUnavailable, "prediction service unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		api.sendError(w, r, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		logging.LogOperation(api.requestLogger(r), "request_canceled", slog.String("path", r.URL.Path))
	default:
		api.serverErrorResponse(w, r, err)
	}
}

// requestLogger prefers the request-scoped logger set by the logging
// middleware and falls back to the application logger.
func (api *RestAPI) requestLogger(r *http.Request) *slog.Logger {
	logger := logging.FromContext(r.Context())
	if logger == slog.Default() && api.Application != nil && api.Logger != nil {
		return api.Logger
	}
	return logger
}
