package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/peek/models"
)

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job outcome")
		return Outcome{}
	}
}

func TestSubmit_ResolvesEachJobExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	var ran []string

	s := NewScheduler(time.Millisecond, func(_ context.Context, job *Job) (*models.ProfileRecord, error) {
		mu.Lock()
		ran = append(ran, job.Target)
		mu.Unlock()
		return &models.ProfileRecord{Name: job.Target}, nil
	})

	targets := []string{"a", "b", "c", "d"}
	chans := make([]<-chan Outcome, len(targets))
	for i, target := range targets {
		chans[i] = s.Submit(NewJob(target, models.AllSections()))
	}

	for i, ch := range chans {
		out := waitOutcome(t, ch)
		if out.Err != nil {
			t.Fatalf("job %q failed: %v", targets[i], out.Err)
		}
		if out.Record.Name != targets[i] {
			t.Errorf("job %d resolved with record for %q, want %q", i, out.Record.Name, targets[i])
		}
		// One-shot: a second receive must not produce another outcome.
		select {
		case extra := <-ch:
			t.Errorf("job %q resolved twice: %+v", targets[i], extra)
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ran) != len(targets) {
		t.Fatalf("runner invoked %d times, want %d", len(ran), len(targets))
	}
	for i, target := range targets {
		if ran[i] != target {
			t.Errorf("execution order[%d] = %q, want %q (FIFO)", i, ran[i], target)
		}
	}
}

func TestDrain_SingleInvocationInFlight(t *testing.T) {
	var active, maxActive int32

	s := NewScheduler(0, func(context.Context, *Job) (*models.ProfileRecord, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &models.ProfileRecord{}, nil
	})

	var chans []<-chan Outcome
	for i := 0; i < 10; i++ {
		chans = append(chans, s.Submit(NewJob("https://example.com/in/x", nil)))
	}
	for _, ch := range chans {
		waitOutcome(t, ch)
	}

	if got := atomic.LoadInt32(&maxActive); got > 1 {
		t.Errorf("observed %d concurrent runner invocations, want at most 1", got)
	}
}

func TestDrain_DelayBetweenJobs(t *testing.T) {
	const delay = 100 * time.Millisecond

	var mu sync.Mutex
	var starts []time.Time
	var aDone time.Time

	s := NewScheduler(delay, func(_ context.Context, job *Job) (*models.ProfileRecord, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return &models.ProfileRecord{}, nil
	})

	chA := s.Submit(NewJob("a", nil))
	chB := s.Submit(NewJob("b", nil))

	waitOutcome(t, chA)
	aDone = time.Now()
	waitOutcome(t, chB)

	mu.Lock()
	defer mu.Unlock()
	if len(starts) != 2 {
		t.Fatalf("expected 2 runner invocations, got %d", len(starts))
	}
	if starts[1].Before(aDone) {
		t.Error("job b started before job a resolved")
	}
	if gap := starts[1].Sub(starts[0]); gap < delay {
		t.Errorf("inter-job gap %v, want at least %v", gap, delay)
	}
}

func TestDrain_FailureDoesNotAbortLoop(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(time.Millisecond, func(_ context.Context, job *Job) (*models.ProfileRecord, error) {
		if job.Target == "bad" {
			return nil, boom
		}
		return &models.ProfileRecord{Name: job.Target}, nil
	})

	chBad := s.Submit(NewJob("bad", nil))
	chGood := s.Submit(NewJob("good", nil))

	if out := waitOutcome(t, chBad); !errors.Is(out.Err, boom) {
		t.Errorf("bad job outcome = %+v, want boom error", out)
	}
	out := waitOutcome(t, chGood)
	if out.Err != nil {
		t.Fatalf("good job failed after a preceding failure: %v", out.Err)
	}
	if out.Record.Name != "good" {
		t.Errorf("good job record = %q, want %q", out.Record.Name, "good")
	}
}

func TestDrain_RecoversFromRunnerPanic(t *testing.T) {
	s := NewScheduler(time.Millisecond, func(_ context.Context, job *Job) (*models.ProfileRecord, error) {
		if job.Target == "panic" {
			panic("extractor exploded")
		}
		return &models.ProfileRecord{}, nil
	})

	chPanic := s.Submit(NewJob("panic", nil))
	chOK := s.Submit(NewJob("ok", nil))

	out := waitOutcome(t, chPanic)
	var se *models.ScrapeError
	if !errors.As(out.Err, &se) || se.Code != models.ErrCodeInternal {
		t.Errorf("panicking job outcome = %+v, want internal ScrapeError", out)
	}
	if out := waitOutcome(t, chOK); out.Err != nil {
		t.Fatalf("job after panic failed: %v", out.Err)
	}
}

func TestStatus_TracksPendingAndDraining(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	s := NewScheduler(0, func(context.Context, *Job) (*models.ProfileRecord, error) {
		once.Do(func() { close(started) })
		<-release
		return &models.ProfileRecord{}, nil
	})

	if pending, draining := s.Status(); pending != 0 || draining {
		t.Fatalf("idle status = (%d, %v), want (0, false)", pending, draining)
	}

	ch1 := s.Submit(NewJob("one", nil))
	<-started
	ch2 := s.Submit(NewJob("two", nil))

	pending, draining := s.Status()
	if !draining {
		t.Error("draining = false while a job is running")
	}
	if pending != 1 {
		t.Errorf("pending = %d with one job queued behind the running one, want 1", pending)
	}

	close(release)
	waitOutcome(t, ch1)
	waitOutcome(t, ch2)

	deadline := time.Now().Add(time.Second)
	for {
		pending, draining = s.Status()
		if pending == 0 && !draining {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = (%d, %v) after all jobs resolved, want (0, false)", pending, draining)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSubmit_ConcurrentCallersAllResolve(t *testing.T) {
	const n = 20

	s := NewScheduler(0, func(_ context.Context, job *Job) (*models.ProfileRecord, error) {
		return &models.ProfileRecord{Name: job.Target}, nil
	})

	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch := s.Submit(NewJob("job", nil))
			select {
			case outcomes[i] = <-ch:
			case <-time.After(5 * time.Second):
				outcomes[i] = Outcome{Err: errors.New("timed out waiting for outcome")}
			}
		}(i)
	}
	wg.Wait()

	for i, out := range outcomes {
		if out.Err != nil {
			t.Errorf("job %d failed: %v", i, out.Err)
		}
	}
}
