package restapi

import (
	"net/http"
	"strings"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/models"
	"routeeta.transit.dev/internal/utils"
)

func (api *RestAPI) routeEtaHandler(w http.ResponseWriter, r *http.Request) {
	var body models.RouteEtaRequest
	if fieldErrors := decodeJSONBody(w, r, &body); len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	fieldErrors := map[string][]string{}
	if strings.TrimSpace(body.RouteShortName) == "" {
		fieldErrors["route_short_name"] = []string{`Missing required field "route_short_name".`}
	}
	fieldErrors = utils.ValidateCoordinatePair("from_coord", body.FromCoord, fieldErrors)
	fieldErrors = utils.ValidateCoordinatePair("to_coord", body.ToCoord, fieldErrors)
	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}

	if api.ETAService == nil {
		api.computeErrorResponse(w, r, eta.ErrPredictorUnavailable)
		return
	}

	result, err := api.ETAService.Compute(r.Context(), body.ToRequest())
	if err != nil {
		api.computeErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(models.NewRouteEtaResponse(result), api.clock()))
}
