package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/peek/cache"
	"github.com/use-agent/peek/config"
	"github.com/use-agent/peek/models"
	"github.com/use-agent/peek/profile"
	"github.com/use-agent/peek/queue"
	"github.com/use-agent/peek/webhook"
)

// Scrape returns a handler for POST /scrape.
//
// Flow:
//  1. Parse + validate the request (sections, target pattern).
//  2. Consult the response cache when max_age is set.
//  3. Submit a Job to the scheduler.
//  4. With a callback_url: acknowledge with 202, deliver via webhook.
//     Without: block on the job's result channel and answer in-band.
func Scrape(sched *queue.Scheduler, cc *cache.Cache, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		sections, err := models.ParseSections(req.ExtractSections)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// Reject malformed targets here so they never occupy the queue.
		if !profile.ValidTarget(req.URL) {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidTarget,
					Message: "url does not match the expected profile page pattern",
				},
			})
			return
		}

		cacheKey := cache.Key(req.URL, sections)
		if cc != nil {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				// A warm cache still honors the requested delivery mode:
				// callback requests get their result over the webhook.
				if req.CallbackURL != "" {
					webhook.DeliverAsync(req.CallbackURL, cfg.Webhook.Secret, &webhook.Event{
						Type:      "scrape.completed",
						Target:    req.URL,
						Timestamp: time.Now().Unix(),
						Data:      cached.Data,
					})
					c.JSON(http.StatusAccepted, models.AcceptedResponse{
						Success:     true,
						Queued:      false,
						CallbackURL: req.CallbackURL,
					})
					return
				}
				resp := *cached
				resp.CacheStatus = "hit"
				c.JSON(http.StatusOK, &resp)
				return
			}
		}

		job := queue.NewJob(req.URL, sections)
		job.UseProxy = req.UseProxy
		job.Wait = time.Duration(req.WaitTime) * time.Second
		job.Retries = req.RetryAttempts

		result := sched.Submit(job)

		if req.CallbackURL != "" {
			pending, _ := sched.Status()
			go func() {
				deliverOutcome(req.CallbackURL, cfg.Webhook.Secret, job, <-result)
			}()
			c.JSON(http.StatusAccepted, models.AcceptedResponse{
				Success:     true,
				Queued:      true,
				QueueLength: pending,
				CallbackURL: req.CallbackURL,
			})
			return
		}

		// The job keeps running and resolves into its buffered channel
		// even when the caller goes away before the result is ready.
		var out queue.Outcome
		select {
		case out = <-result:
		case <-c.Request.Context().Done():
			c.JSON(http.StatusGatewayTimeout, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRequestAborted,
					Message: "request closed before the scrape finished",
				},
			})
			return
		}
		if out.Err != nil {
			respondError(c, out.Err)
			return
		}

		resp := &models.ScrapeResponse{Success: true, Data: out.Record}
		if cc != nil && req.MaxAge > 0 {
			// Cache a copy so the stored entry never shares memory with
			// the response being written.
			stored := *resp
			cc.Set(cacheKey, &stored)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// deliverOutcome converts a resolved job into a webhook event.
func deliverOutcome(url, secret string, job *queue.Job, out queue.Outcome) {
	event := &webhook.Event{
		Target:    job.Target,
		Timestamp: time.Now().Unix(),
	}
	if out.Err != nil {
		event.Type = "scrape.failed"
		event.Data = errorDetail(out.Err)
	} else {
		event.Type = "scrape.completed"
		event.Data = out.Record
	}
	webhook.DeliverAsync(url, secret, event)
}

// respondError maps a ScrapeError to the correct HTTP status code and
// writes a structured JSON error response.
func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), models.ScrapeResponse{
		Success: false,
		Error:   errorDetail(err),
	})
}

func errorDetail(err error) *models.ErrorDetail {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	return scrapeErr.ToDetail()
}

// statusFor translates error codes to HTTP status codes.
func statusFor(err error) int {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch scrapeErr.Code {
	case models.ErrCodeInvalidTarget, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNavigationTimeout, models.ErrCodeRequestAborted:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigationFailed, models.ErrCodeSessionFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}
