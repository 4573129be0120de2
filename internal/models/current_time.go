package models

import "time"

type CurrentTimeModel struct {
	ReadableTime string `json:"readableTime"`
	Time         int64  `json:"time"`
}

type CurrentTimeData struct {
	Entry CurrentTimeModel `json:"entry"`
}

// NewCurrentTimeData reports t both as RFC3339 and in Unix milliseconds.
func NewCurrentTimeData(t time.Time) CurrentTimeData {
	return CurrentTimeData{
		Entry: CurrentTimeModel{
			ReadableTime: t.Format(time.RFC3339),
			Time:         t.UnixMilli(),
		},
	}
}
