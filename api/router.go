package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/peek/api/handler"
	"github.com/use-agent/peek/api/middleware"
	"github.com/use-agent/peek/cache"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/queue"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	/scrape: RateLimit
//
// Info endpoints stay outside the rate limiter so monitoring probes
// always work.
func NewRouter(sched *queue.Scheduler, cc *cache.Cache, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/", handler.Info(sched, cfg))
	r.GET("/health", handler.Health(sched, startTime))
	r.GET("/queue", handler.QueueStatus(sched, cfg))

	r.POST("/scrape", middleware.RateLimit(cfg.RateLimit), handler.Scrape(sched, cc, cfg))

	r.NoRoute(handler.NotFound())

	return r
}
