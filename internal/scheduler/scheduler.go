package scheduler

import (
	"fmt"
	"log"
	"sync"

	"stocklens/internal/pipeline"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the analysis pipeline on a cron schedule. Runs are
// serialized: a tick that fires while a run is in progress is skipped.
type Scheduler struct {
	cron     *cron.Cron
	pipeline *pipeline.Pipeline
	mu       sync.Mutex
	running  bool
}

// New creates a Scheduler around the given pipeline.
func New(p *pipeline.Pipeline) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pipeline: p,
	}
}

// Register adds the refresh task under the given cron spec.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes the refresh task immediately (manual trigger / run on
// start).
func (s *Scheduler) RunNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[WARN] previous run still in progress, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Println("[INFO] running scheduled refresh")
	sum, err := s.pipeline.RunAll()
	if err != nil {
		log.Printf("[ERROR] scheduled refresh: %v", err)
		return
	}
	for _, f := range sum.Failures {
		log.Printf("[WARN] asset %s failed: %v", f.Symbol, f.Err)
	}
}
