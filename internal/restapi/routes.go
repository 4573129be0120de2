package restapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request)

const (
	staticCacheSeconds = 300
	noCache            = 0
)

func validateAPIKey(api *RestAPI, finalHandler handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if api.RequestHasInvalidAPIKey(r) {
			api.invalidAPIKeyResponse(w, r)
			return
		}
		finalHandler(w, r)
	})
}

// protected applies rate limiting, API key validation and cache headers.
func (api *RestAPI) protected(cacheSeconds int, h handlerFunc) http.Handler {
	var next http.Handler = validateAPIKey(api, h)
	if api.rateLimiter != nil {
		next = api.rateLimiter.Handler()(next)
	}
	return CacheControlMiddleware(cacheSeconds, next)
}

func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/predictions/route_eta", api.protected(noCache, api.routeEtaHandler))
	mux.Handle("POST /api/predictions/delay", api.protected(noCache, api.delayHandler))
	mux.Handle("GET /api/routes", api.protected(staticCacheSeconds, api.routesHandler))
	mux.Handle("GET /api/routes/{key}/stops", api.protected(staticCacheSeconds, api.routeStopsHandler))
	mux.Handle("GET /api/routes-for-location", api.protected(staticCacheSeconds, api.routesForLocationHandler))
	mux.Handle("GET /api/current-time", api.protected(noCache, api.currentTimeHandler))

	mux.HandleFunc("GET /healthz", api.healthHandler)
	mux.HandleFunc("GET /ping", api.pingHandler)

	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// WithMiddleware wraps the mux in the server-wide middleware chain.
// Metrics sit directly on the mux so r.Pattern is visible to them.
func (api *RestAPI) WithMiddleware(mux http.Handler) (http.Handler, error) {
	gzipMiddleware, err := newGzipMiddleware()
	if err != nil {
		return nil, err
	}

	handler := MetricsHandler(api.Metrics)(mux)
	handler = requestTimeout(api.Config.RequestTimeout)(handler)
	handler = gzipMiddleware(handler)
	handler = NewRequestLoggingMiddleware(api.Logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = securityHeaders(api.Config.AllowedOrigins)(handler)
	return handler, nil
}
