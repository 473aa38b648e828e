package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vantera/config"
	"vantera/services"
)

type fakeBootstrap struct {
	mu    sync.Mutex
	calls int
	block chan struct{}
	err   error
}

func (f *fakeBootstrap) Run(ctx context.Context, dryRun bool) (*services.BootstrapResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return &services.BootstrapResult{RunID: "run-1"}, f.err
	}
	return &services.BootstrapResult{RunID: "run-1", Created: 1}, nil
}

func TestStart_Disabled(t *testing.T) {
	s := New(config.SchedulerConfig{}, &fakeBootstrap{})
	if s.Enabled() {
		t.Fatal("scheduler should be disabled without a cron expression")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()
}

func TestStart_InvalidCron(t *testing.T) {
	s := New(config.SchedulerConfig{BootstrapCron: "not a cron"}, &fakeBootstrap{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStart_ValidCron(t *testing.T) {
	s := New(config.SchedulerConfig{BootstrapCron: "0 3 * * *"}, &fakeBootstrap{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("expected 1 cron entry, got %d", n)
	}
	s.Stop()
}

func TestTriggerNow_SkipsOverlap(t *testing.T) {
	fb := &fakeBootstrap{block: make(chan struct{})}
	s := New(config.SchedulerConfig{}, fb)

	done := make(chan bool)
	go func() { done <- s.TriggerNow(context.Background()) }()

	// wait until the first run holds the slot
	for {
		fb.mu.Lock()
		n := fb.calls
		fb.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if s.TriggerNow(context.Background()) {
		t.Error("overlapping trigger should be skipped")
	}
	close(fb.block)
	if !<-done {
		t.Error("first trigger should have run")
	}
	if fb.calls != 1 {
		t.Errorf("expected 1 bootstrap call, got %d", fb.calls)
	}
}

func TestTriggerNow_Error(t *testing.T) {
	fb := &fakeBootstrap{err: errors.New("boom")}
	s := New(config.SchedulerConfig{}, fb)
	if !s.TriggerNow(context.Background()) {
		t.Error("trigger should run even when bootstrap fails")
	}
}
