// Package webui serves the developer debug pages.
package webui

import (
	"net/http"

	"routeeta.transit.dev/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug", webUI.debugIndexHandler)
	mux.HandleFunc("GET /debug/{$}", webUI.debugIndexHandler)
}
