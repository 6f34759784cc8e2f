package handlers

import "context"

// HealthRequest is the request type for health check (empty).
type HealthRequest struct{}

// Validate implements server.Validatable.
func (*HealthRequest) Validate() error { return nil }

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health returns the health status of the server.
func (h *Handler) Health(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Status: "ok", Version: h.version}, nil
}
