package runlog

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"vantera/models"
)

var ErrSimulatorClosed = errors.New("run simulator is shut down")

const DefaultSimulateDelay = 1500 * time.Millisecond

// Simulator backs the run-log test trigger: a run is created RUNNING and
// finalized after a delay, on a lifecycle owned by the server.
type Simulator struct {
	tracker *Tracker
	delay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewSimulator(tracker *Tracker, delay time.Duration) *Simulator {
	if delay <= 0 {
		delay = DefaultSimulateDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{tracker: tracker, delay: delay, ctx: ctx, cancel: cancel}
}

// Trigger creates the run and returns immediately; completion is scheduled.
func (s *Simulator) Trigger(ctx context.Context, run models.ImportRun) (*models.ImportRun, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSimulatorClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	created, err := s.tracker.Start(ctx, run)
	if err != nil {
		s.wg.Done()
		return nil, err
	}

	go s.complete(created.ID)
	return created, nil
}

func (s *Simulator) complete(id string) {
	defer s.wg.Done()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	status, message := models.RunStatusSucceeded, "simulated completion"
	select {
	case <-timer.C:
	case <-s.ctx.Done():
		status, message = models.RunStatusFailed, "interrupted by shutdown"
	}

	var stats models.RunStats
	if _, err := s.tracker.Finish(context.Background(), id, stats.Patch(status, message)); err != nil {
		log.Printf("RunLog: simulated run %s not finalized: %v", id, err)
	}
}

// Shutdown stops new triggers and waits for pending completions. When ctx
// expires first, pending runs are finalized as FAILED.
func (s *Simulator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
