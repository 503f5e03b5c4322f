// Package api defines the JSON bodies exchanged with the counting service.
package api

import "cell-counter/pkg/geometry"

// Routes served by the counting service.
const (
	PingPath    = "/api/ping"
	CountPath   = "/api/count"
	MetricsPath = "/metrics"

	// ImageField is the multipart form field carrying the upload.
	ImageField = "image"
)

// CountResponse is returned by a successful count.
type CountResponse struct {
	ID     string           `json:"id"`
	Count  int              `json:"count"`
	Cells  []geometry.Cell  `json:"cells"`
	Circle *geometry.Circle `json:"circle,omitempty"` // absent when no foreground was found
	Millis int64            `json:"elapsedMs"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// PingResponse reports liveness and the running build.
type PingResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
}
