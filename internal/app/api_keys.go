package app

import (
	"crypto/subtle"
	"net/http"
)

func (app *Application) RequestHasInvalidAPIKey(r *http.Request) bool {
	key := r.URL.Query().Get("key")
	return app.IsInvalidAPIKey(key)
}

// IsInvalidAPIKey checks key against the configured keys. With no keys
// configured the API is open and every key, including none, is accepted.
func (app *Application) IsInvalidAPIKey(key string) bool {
	validKeys := app.Config.ApiKeys
	if len(validKeys) == 0 {
		return false
	}
	if key == "" {
		return true
	}

	invalid := true
	for _, validKey := range validKeys {
		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
			invalid = false
		}
	}
	return invalid
}
