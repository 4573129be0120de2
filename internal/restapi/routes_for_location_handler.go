package restapi

import (
	"net/http"
	"strconv"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/geo"
	"routeeta.transit.dev/internal/models"
	"routeeta.transit.dev/internal/utils"
)

const (
	defaultSearchRadiusM = 600
	maxSearchRadiusM     = 10000
	defaultMaxCount      = 50
	maxMaxCount          = 250
)

// routesForLocationHandler lists routes with a stop within radius metres
// of lat/lon, nearest first.
func (api *RestAPI) routesForLocationHandler(w http.ResponseWriter, r *http.Request) {
	queryParams := r.URL.Query()

	lat, fieldErrors := utils.RequireFloatParam(queryParams, "lat", nil)
	lon, fieldErrors := utils.RequireFloatParam(queryParams, "lon", fieldErrors)
	radius, fieldErrors := utils.ParseFloatParam(queryParams, "radius", fieldErrors)
	if len(fieldErrors) == 0 {
		fieldErrors = utils.ValidateCoordinate(lat, lon, fieldErrors)
	}
	if radius < 0 || radius > maxSearchRadiusM {
		fieldErrors["radius"] = append(fieldErrors["radius"], "Radius must be between 0 and 10000 metres.")
	}

	maxCount := defaultMaxCount
	if raw := queryParams.Get("maxCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxMaxCount {
			fieldErrors["maxCount"] = append(fieldErrors["maxCount"], "maxCount must be between 1 and 250.")
		} else {
			maxCount = n
		}
	}

	if len(fieldErrors) > 0 {
		api.validationErrorResponse(w, r, fieldErrors)
		return
	}
	if api.Topology == nil {
		api.computeErrorResponse(w, r, eta.ErrPredictorUnavailable)
		return
	}
	if radius == 0 {
		radius = defaultSearchRadiusM
	}

	nearby := api.Topology.RoutesNear(geo.Coordinate{Lat: lat, Lon: lon}, radius/1000)
	limitExceeded := len(nearby) > maxCount
	if limitExceeded {
		nearby = nearby[:maxCount]
	}

	list := make([]models.RouteNearby, len(nearby))
	for i, rs := range nearby {
		list[i] = models.NewRouteNearby(rs)
	}
	api.sendResponse(w, r, models.NewListResponse(list, limitExceeded, api.clock()))
}
