package models

import (
	"net/http"

	"routeeta.transit.dev/internal/clock"
)

// ResponseModel is the envelope every JSON endpoint answers with.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
}

// ResponseCurrentTime is the envelope timestamp in Unix milliseconds.
func ResponseCurrentTime(c clock.Clock) int64 {
	if c == nil {
		c = clock.RealClock{}
	}
	return c.Now().UnixMilli()
}

func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        http.StatusOK,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        "OK",
		Version:     2,
	}
}

// NewListResponse wraps a list with a truncation flag.
func NewListResponse(list interface{}, limitExceeded bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{List: list, LimitExceeded: limitExceeded}, c)
}

type ListData struct {
	List          interface{} `json:"list"`
	LimitExceeded bool        `json:"limitExceeded"`
}
