// Package api defines the request and response types of the floor plan
// tiling HTTP API.
package api

import "time"

// HealthStatus values reported by the health endpoint.
const Healthy = "healthy"

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    *int      `json:"uptime,omitempty"`
	Version   *string   `json:"version,omitempty"`
}

// ProcessRequest starts tiling a floor plan. Exactly one source must be
// given: a URL to fetch the PDF from.
type ProcessRequest struct {
	FileURL string `json:"file_url"`
}

// ProcessResponse acknowledges an accepted tiling job.
type ProcessResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse is the body of GET /api/v1/jobs/{id}.
type JobResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	FloorplanID string    `json:"floorplan_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Geometry is one viewer-space annotation. Kind selects which of Point
// and Ring is used.
type Geometry struct {
	Kind  string       `json:"kind"`
	Point [2]float64   `json:"point,omitempty"`
	Ring  [][2]float64 `json:"ring,omitempty"`
	Label string       `json:"label,omitempty"`
}

// AnnotateRequest burns geometries into a floor plan's archived PDF.
type AnnotateRequest struct {
	Geometries []Geometry `json:"geometries"`
}

// ErrorResponse is the uniform error body of every endpoint.
type ErrorResponse struct {
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`
}
