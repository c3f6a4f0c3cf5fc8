package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/peek/models"
	"github.com/use-agent/peek/queue"
)

// Version is the service version reported by the info endpoints.
const Version = "0.2.0"

// Health returns a handler for GET /health. No side effects; safe for
// liveness probes.
func Health(sched *queue.Scheduler, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, _ := sched.Status()
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:      "healthy",
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			QueueLength: pending,
			Version:     Version,
		})
	}
}
