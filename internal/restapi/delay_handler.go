package restapi

import (
	"net/http"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/models"
	"routeeta.transit.dev/internal/utils"
)

// delayHandler predicts the delay at a single stop.
func (api *RestAPI) delayHandler(w http.ResponseWriter, r *http.Request) {
	var body models.DelayRequest
	if fieldErrors := decodeJSONBody(w, r, &body); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	fieldErrors := map[string][]string{}
	if body.RouteKey == "" {
		fieldErrors["route_key"] = []string{`Missing required field "route_key".`}
	}
	if body.StopID == nil {
		fieldErrors["stop_id"] = []string{`Missing required field "stop_id".`}
	}
	var lat, lon float64
	if body.Lat != nil {
		lat = *body.Lat
	}
	if body.Lon != nil {
		lon = *body.Lon
	}
	fieldErrors = utils.ValidateCoordinate(lat, lon, fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if api.ETAService == nil {
		api.computeErrorResponse(w, r, eta.ErrPredictorUnavailable)
		return
	}

	prediction, err := api.ETAService.PredictDelay(r.Context(), body.ToRequest())
	if err != nil {
		api.computeErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(models.NewDelayResponse(prediction), api.clock()))
}
