// Package queue implements the single-worker rate-limited scrape queue.
//
// All scrape work in the process funnels through one Scheduler: jobs are
// executed strictly one at a time, in submission order, with a fixed pause
// between consecutive jobs. This serializes access to the shared browser
// and keeps the request rate against the target site bounded.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/peek/models"
)

// Outcome is the terminal result of one Job: a record or an error,
// never both.
type Outcome struct {
	Record *models.ProfileRecord
	Err    error
}

// Job is one queued scrape task. Jobs are immutable after creation; the
// Scheduler resolves each job's result channel exactly once.
type Job struct {
	// Target is the profile page locator.
	Target string

	// Sections is the requested section set (never empty; the caller
	// expands "all" before submission).
	Sections []models.Section

	// UseProxy routes the session through the configured proxy.
	UseProxy bool

	// Wait overrides the post-navigation settle delay. Zero means the
	// configured default.
	Wait time.Duration

	// Retries is the retry budget for transient failures, consumed by
	// the runner (the Scheduler itself never retries).
	Retries int

	result   chan Outcome
	resolved sync.Once
}

// NewJob creates a Job with an unresolved one-shot result channel.
func NewJob(target string, sections []models.Section) *Job {
	return &Job{
		Target:   target,
		Sections: sections,
		result:   make(chan Outcome, 1),
	}
}

// Result returns the channel on which the job's single Outcome is
// delivered.
func (j *Job) Result() <-chan Outcome {
	return j.result
}

// resolve delivers the outcome. Safe to call more than once; only the
// first call wins. The channel is buffered so delivery never blocks the
// drain loop, even if no receiver is waiting.
func (j *Job) resolve(o Outcome) {
	j.resolved.Do(func() {
		j.result <- o
	})
}

// Runner executes one dequeued job. It must return the record or an
// error; it must never panic the drain loop out of existence (panics are
// recovered and converted to an internal error).
type Runner func(ctx context.Context, job *Job) (*models.ProfileRecord, error)

// Scheduler owns the pending job sequence and the draining flag. It is
// safe for concurrent use; Submit may be called from any goroutine while
// a drain is in progress.
type Scheduler struct {
	mu       sync.Mutex
	pending  []*Job
	draining bool

	delay time.Duration
	run   Runner
}

// NewScheduler creates a Scheduler that executes jobs through run with
// the given fixed inter-job delay.
func NewScheduler(delay time.Duration, run Runner) *Scheduler {
	return &Scheduler{
		delay: delay,
		run:   run,
	}
}

// Submit appends the job to the pending sequence and returns immediately.
// If no drain is in progress, one is started. The returned channel is the
// job's one-shot result channel.
func (s *Scheduler) Submit(job *Job) <-chan Outcome {
	s.mu.Lock()
	s.pending = append(s.pending, job)
	pending := len(s.pending)
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	slog.Info("job queued", "target", job.Target, "pending", pending)

	if start {
		go s.drain()
	}
	return job.Result()
}

// Status returns the pending count and whether a drain is in progress.
func (s *Scheduler) Status() (pending int, draining bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), s.draining
}

// drain processes pending jobs one at a time until the queue is observed
// empty. The draining flag is cleared under the same lock as the empty
// check, so a concurrent Submit either sees the flag still set (and the
// loop will pick its job up) or starts a fresh drain.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		job := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		start := time.Now()
		record, err := s.runJob(job)
		if err != nil {
			slog.Warn("job failed",
				"target", job.Target,
				"duration", time.Since(start).Round(time.Millisecond),
				"error", err,
			)
			job.resolve(Outcome{Err: err})
		} else {
			slog.Info("job completed",
				"target", job.Target,
				"duration", time.Since(start).Round(time.Millisecond),
			)
			job.resolve(Outcome{Record: record})
		}

		s.mu.Lock()
		more := len(s.pending) > 0
		s.mu.Unlock()
		if more {
			time.Sleep(s.delay)
		}
	}
}

// runJob invokes the runner with panic isolation: a panicking runner
// fails its own job but never kills the drain loop.
func (s *Scheduler) runJob(job *Job) (record *models.ProfileRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("runner panic", "target", job.Target, "panic", r)
			record = nil
			err = models.NewScrapeError(models.ErrCodeInternal, "scrape worker panicked", nil)
		}
	}()
	return s.run(context.Background(), job)
}
