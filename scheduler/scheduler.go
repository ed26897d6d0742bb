package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"finn_scrooper/config"
	"github.com/robfig/cron/v3"
)

var (
	ErrNoSchedule     = errors.New("no schedule configured, set SCRAPE_CRON or SCRAPE_INTERVAL")
	ErrRunInProgress  = errors.New("a run is already in progress")
	ErrSchedulerEnded = errors.New("scheduler stopped")
)

// Runner is what the scheduler triggers, normally the scraper Orchestrator.
type Runner interface {
	RunAll(ctx context.Context) error
}

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}

	mu       sync.Mutex
	stopped  bool
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

func New(cfg config.SchedulerConfig, runner Runner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	switch {
	case s.cfg.Cron != "":
		log.Printf("Starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() {
			s.runScheduled(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	case s.cfg.Interval > 0:
		log.Printf("Starting scheduler with interval: %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.runScheduled(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	default:
		return ErrNoSchedule
	}

	return nil
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	err := s.TriggerNow(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		log.Println("Previous run still in progress, skipping trigger")
	case err != nil:
		log.Printf("Scheduled run error: %v", err)
	}
}

// TriggerNow runs immediately unless another run is in flight. Stop
// cancels the context the run sees.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrSchedulerEnded
	}
	if s.cancelFn != nil {
		s.mu.Unlock()
		return ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancelFn = nil
		s.mu.Unlock()
		cancel()
		s.wg.Done()
	}()

	return s.runner.RunAll(runCtx)
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelFn != nil
}

// Stop halts future triggers, cancels the in-flight run and waits for it
// to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.cancelFn != nil {
		s.cancelFn()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)

	s.wg.Wait()
}
