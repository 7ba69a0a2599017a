package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"pushnotify/internal/httputil"
	"pushnotify/internal/redis"
)

// HealthHandler reports the status of the service's collaborators.
type HealthHandler struct {
	db             *sqlx.DB
	redisClient    *redis.Client // can be nil
	pushConfigured bool
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client, pushConfigured bool) *HealthHandler {
	return &HealthHandler{
		db:             db,
		redisClient:    redisClient,
		pushConfigured: pushConfigured,
	}
}

type healthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
// Pings the database (and Redis when configured); any failed check flips the
// overall status to unhealthy with a 503.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := healthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "unhealthy"
		status.Checks["database"] = "error: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks["redis"] = "error: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	if h.pushConfigured {
		status.Checks["push_provider"] = "configured"
	} else {
		status.Checks["push_provider"] = "not configured"
	}

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, status)
}
