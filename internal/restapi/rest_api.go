package restapi

import (
	"time"

	"routeeta.transit.dev/internal/app"
	"routeeta.transit.dev/internal/clock"
)

type RestAPI struct {
	*app.Application
	rateLimiter *RateLimitMiddleware
}

// NewRestAPI creates a new RestAPI instance with initialized rate limiter
func NewRestAPI(app *app.Application) *RestAPI {
	var c clock.Clock = clock.RealClock{}
	if app.Clock != nil {
		c = app.Clock
	}
	return &RestAPI{
		Application: app,
		rateLimiter: NewRateLimitMiddleware(app.Config.RateLimit, time.Second, app.Config.ExemptApiKeys, c),
	}
}

// Shutdown stops background goroutines owned by the API.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
}
