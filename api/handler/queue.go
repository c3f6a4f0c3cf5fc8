package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/models"
	"github.com/use-agent/peek/queue"
)

// QueueStatus returns a handler for GET /queue.
func QueueStatus(sched *queue.Scheduler, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, draining := sched.Status()
		c.JSON(http.StatusOK, models.QueueStatusResponse{
			QueueLength:    pending,
			IsProcessing:   draining,
			RateLimitDelay: int(cfg.Queue.Delay.Milliseconds()),
			ProxyEnabled:   cfg.Proxy.Enabled(),
		})
	}
}

// Info returns a handler for GET /: liveness plus queue length and a
// config echo.
func Info(sched *queue.Scheduler, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, _ := sched.Status()

		sections := make([]string, 0, len(models.AllSections()))
		for _, s := range models.AllSections() {
			sections = append(sections, string(s))
		}

		c.JSON(http.StatusOK, models.InfoResponse{
			Service:        "peek",
			Version:        Version,
			QueueLength:    pending,
			RateLimitDelay: int(cfg.Queue.Delay.Milliseconds()),
			ProxyEnabled:   cfg.Proxy.Enabled(),
			Sections:       sections,
			Endpoints:      Endpoints,
		})
	}
}

// Endpoints lists every route the service serves; echoed on GET / and
// on 404 responses.
var Endpoints = []string{
	"GET /",
	"GET /health",
	"GET /queue",
	"POST /scrape",
}

// NotFound returns the handler for unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success":   false,
			"error":     "endpoint not found",
			"endpoints": Endpoints,
		})
	}
}
