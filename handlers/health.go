package handlers

import (
	"net/http"

	"todoapi/models"

	"github.com/charmbracelet/log"
)

// Reported by the index endpoint. The name is the service's own, not the
// framework it happens to be written in.
const (
	ServiceName = "Todo API"
	Version     = "1.0.0"
)

// indexEndpoints is the public route map advertised on GET /.
var indexEndpoints = map[string]string{
	"health": "/api/health",
	"todos":  "/api/todos",
}

// Health handles GET /api/health. A failed check is a 503 that carries the
// backend error text; this endpoint is diagnostic, unlike the data endpoints.
func Health(w http.ResponseWriter, r *http.Request, store TodoStore) {
	if err := store.Ping(r.Context()); err != nil {
		log.Warn("health check failed", "request_id", RequestID(r.Context()), "err", err)
		writeJSON(w, http.StatusServiceUnavailable, models.HealthStatus{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, models.HealthStatus{Status: "healthy", Database: "connected"})
}

// Index handles GET / with static service metadata.
func Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ServiceInfo{
		Message:   ServiceName,
		Version:   Version,
		Endpoints: indexEndpoints,
	})
}
