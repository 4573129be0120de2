package restapi

import (
	"net/http"

	"routeeta.transit.dev/internal/eta"
	"routeeta.transit.dev/internal/models"
)

func (api *RestAPI) routesHandler(w http.ResponseWriter, r *http.Request) {
	if api.Topology == nil {
		api.computeErrorResponse(w, r, eta.ErrPredictorUnavailable)
		return
	}

	routes := api.Topology.Routes()
	list := make([]models.Route, len(routes))
	for i, route := range routes {
		list[i] = models.NewRoute(route)
	}
	api.sendResponse(w, r, models.NewListResponse(list, false, api.clock()))
}

func (api *RestAPI) routeStopsHandler(w http.ResponseWriter, r *http.Request) {
	if api.Topology == nil {
		api.computeErrorResponse(w, r, eta.ErrPredictorUnavailable)
		return
	}

	route, err := api.Topology.Resolve(r.PathValue("key"))
	if err != nil {
		api.computeErrorResponse(w, r, err)
		return
	}
	api.sendResponse(w, r, models.NewOKResponse(models.NewRouteStops(route), api.clock()))
}
