package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"vantera/config"
	"vantera/services"
)

// Bootstrapper is the city bootstrap entry point the schedule drives.
type Bootstrapper interface {
	Run(ctx context.Context, dryRun bool) (*services.BootstrapResult, error)
}

type Scheduler struct {
	cfg       config.SchedulerConfig
	bootstrap Bootstrapper
	cron      *cron.Cron

	mu      sync.Mutex
	running bool
}

func New(cfg config.SchedulerConfig, bootstrap Bootstrapper) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		bootstrap: bootstrap,
		cron:      cron.New(),
	}
}

// Enabled reports whether any schedule is configured.
func (s *Scheduler) Enabled() bool {
	return s.cfg.BootstrapCron != ""
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		log.Println("No schedule configured, bootstrap runs on request only")
		return nil
	}

	log.Printf("Starting scheduler with cron: %s", s.cfg.BootstrapCron)
	_, err := s.cron.AddFunc(s.cfg.BootstrapCron, func() {
		s.TriggerNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	s.cron.Start()
	return nil
}

// TriggerNow runs the bootstrap once. A tick that lands while the previous
// bootstrap is still running is dropped.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("Scheduled bootstrap skipped: previous run still active")
		return false
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	res, err := s.bootstrap.Run(ctx, false)
	if err != nil {
		log.Printf("Scheduled bootstrap error: %v", err)
		return true
	}
	log.Printf("Scheduled bootstrap run %s created=%d", res.RunID, res.Created)
	return true
}

// Stop halts the cron and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
