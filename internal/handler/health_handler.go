package handler

import (
	"net/http"
	"time"

	"ballotbox/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health. Postgres is required; Redis is reported but
// never fails the check because the service degrades to uncached reads.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   "ballotbox",
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if err := h.container.Database.Health(r.Context()); err != nil {
		logger.WithError(err).Error("Database health check failed")
		response.Status = "unhealthy"
		response.Checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		response.Checks["database"] = "ok"
	}

	if h.container.HasRedis() {
		if err := h.container.RedisClient.Health(r.Context()); err != nil {
			logger.WithError(err).Warn("Redis health check failed")
			response.Checks["redis"] = err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not configured"
	}

	respondJSON(w, status, response)
}
