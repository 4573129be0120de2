// Package utils holds request parsing helpers shared by the HTTP handlers.
package utils

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ParseFloatParam reads an optional float query parameter. Failures are
// appended to fieldErrors under key, which is allocated on first use.
func ParseFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	val := strings.TrimSpace(params.Get(key))
	if val == "" {
		return 0, fieldErrors
	}

	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Invalid field value for field %q.", key))
		return 0, fieldErrors
	}
	return f, fieldErrors
}

// RequireFloatParam is ParseFloatParam with a missing value reported as an
// error.
func RequireFloatParam(params url.Values, key string, fieldErrors map[string][]string) (float64, map[string][]string) {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	if strings.TrimSpace(params.Get(key)) == "" {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Missing required field %q.", key))
		return 0, fieldErrors
	}
	return ParseFloatParam(params, key, fieldErrors)
}

// ValidateCoordinate checks lat/lon ranges and records failures.
func ValidateCoordinate(lat, lon float64, fieldErrors map[string][]string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	if lat < -90 || lat > 90 {
		fieldErrors["lat"] = append(fieldErrors["lat"], "Latitude must be between -90 and 90.")
	}
	if lon < -180 || lon > 180 {
		fieldErrors["lon"] = append(fieldErrors["lon"], "Longitude must be between -180 and 180.")
	}
	return fieldErrors
}

// ValidateCoordinatePair checks a [lat, lon] body field. A nil pair is
// absent and not an error.
func ValidateCoordinatePair(key string, pair []float64, fieldErrors map[string][]string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}
	if pair == nil {
		return fieldErrors
	}
	if len(pair) != 2 {
		fieldErrors[key] = append(fieldErrors[key], fmt.Sprintf("Field %q must be a [lat, lon] pair.", key))
		return fieldErrors
	}
	if pair[0] < -90 || pair[0] > 90 {
		fieldErrors[key] = append(fieldErrors[key], "Latitude must be between -90 and 90.")
	}
	if pair[1] < -180 || pair[1] > 180 {
		fieldErrors[key] = append(fieldErrors[key], "Longitude must be between -180 and 180.")
	}
	return fieldErrors
}
