package restapi

import (
	"net/http"

	"routeeta.transit.dev/internal/models"
)

// currentTimeHandler reports the server clock in the service time zone.
func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	now := api.clock().Now()
	if api.ETAService != nil && api.ETAService.Location != nil {
		now = now.In(api.ETAService.Location)
	}

	api.sendResponse(w, r, models.NewOKResponse(models.NewCurrentTimeData(now), api.clock()))
}
