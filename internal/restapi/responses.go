package restapi

import (
	"encoding/json"
	"net/http"

	"routeeta.transit.dev/internal/clock"
	"routeeta.transit.dev/internal/logging"
	"routeeta.transit.dev/internal/models"
)

func (api *RestAPI) clock() clock.Clock {
	if api.Application == nil || api.Clock == nil {
		return clock.RealClock{}
	}
	return api.Clock
}

func (api *RestAPI) currentTime() int64 {
	return models.ResponseCurrentTime(api.clock())
}

// encode writes v after the status line. A failure here cannot be reported
// to the client any more, so it is only logged.
func (api *RestAPI) encode(w http.ResponseWriter, r *http.Request, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError(api.requestLogger(r), "failed to encode response", err)
	}
}

func (api *RestAPI) sendResponse(w http.ResponseWriter, r *http.Request, response models.ResponseModel) {
	body, err := json.Marshal(response)
	if err != nil {
		api.serverErrorResponse(w, r, err)
		return
	}
	setJSONResponseType(&w)
	_, _ = w.Write(append(body, '\n'))
}

func (api *RestAPI) sendNotFound(w http.ResponseWriter, r *http.Request) {
	api.sendError(w, r, http.StatusNotFound, "resource not found")
}

func setJSONResponseType(w *http.ResponseWriter) {
	(*w).Header().Set("Content-Type", "application/json")
}

func (api *RestAPI) sendError(w http.ResponseWriter, r *http.Request, code int, message string) {
	setJSONResponseType(&w)
	w.WriteHeader(code)

	response := models.ResponseModel{
		Code:        code,
		CurrentTime: api.currentTime(),
		Text:        message,
		Version:     2,
	}
	api.encode(w, r, response)
}
