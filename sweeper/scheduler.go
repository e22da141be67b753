package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrBadInterval is returned by Start when the Target carries no usable interval.
var ErrBadInterval = errors.New("sweep interval must be at least one second")

// Scheduler runs a Sweeper on a fixed interval. Two runs never overlap: a
// tick that arrives while a sweep is still in progress is skipped, and the
// timer simply re-arms for the next tick.
type Scheduler struct {
	sweeper *Sweeper
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	done    chan struct{} // releases the context watcher when Stop is called directly.
}

// NewScheduler creates a Scheduler for the provided Sweeper. The interval
// comes from the Sweeper's Target.
func NewScheduler(sweeper *Sweeper) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start arms the interval timer. Cancelling ctx stops the scheduler and
// interrupts an in-flight sweep between candidates. Calling Start on a
// running Scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.sweeper.Target.Interval < time.Second {
		return ErrBadInterval
	}

	s.cron.Schedule(cron.Every(s.sweeper.Target.Interval), cron.FuncJob(func() {
		s.sweeper.Sweep(ctx)
	}))
	s.cron.Start()
	s.running = true
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}(s.done)

	return nil
}

// Stop disarms the timer and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	close(s.done)
	<-s.cron.Stop().Done()
	s.running = false
}

// IsRunning returns true while the Scheduler is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
