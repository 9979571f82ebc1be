package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ScheduledJob represents one recurring pipeline execution
type ScheduledJob struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CronExpr  string     `json:"cron_expr"`
	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	entryID cron.EntryID
}

// JobFunc is the work a scheduled job performs
type JobFunc func(ctx context.Context) error

// Scheduler runs registered jobs on cron expressions. It is used to re-run
// the preparation and fine-tuning pipeline on a retraining cadence.
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]*ScheduledJob
	mu     sync.RWMutex
	logger *Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler; jobs run with second-less standard
// cron expressions
func NewScheduler(logger *Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		jobs:   make(map[string]*ScheduledJob),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers a job under the given cron expression
func (s *Scheduler) AddJob(name, cronExpr string, fn JobFunc) (*ScheduledJob, error) {
	if name == "" {
		return nil, fmt.Errorf("job name is required")
	}

	job := &ScheduledJob{
		ID:        uuid.New().String(),
		Name:      name,
		CronExpr:  cronExpr,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.runJob(job, fn)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	job.entryID = entryID

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info("scheduled job added", Component("scheduler"), String("job", name), String("cron", cronExpr))
	return job, nil
}

// runJob executes one scheduled invocation
func (s *Scheduler) runJob(job *ScheduledJob, fn JobFunc) {
	s.mu.RLock()
	enabled := job.Enabled
	s.mu.RUnlock()
	if !enabled {
		return
	}

	start := time.Now().UTC()
	err := fn(s.ctx)

	s.mu.Lock()
	job.LastRun = &start
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", err, Component("scheduler"), String("job", job.Name))
		return
	}
	s.logger.Info("scheduled job completed", Component("scheduler"), String("job", job.Name))
}

// SetEnabled toggles a job without removing it
func (s *Scheduler) SetEnabled(jobID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Enabled = enabled
	return nil
}

// RemoveJob unregisters a job
func (s *Scheduler) RemoveJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job %s not found", jobID)
	}
	s.cron.Remove(job.entryID)
	delete(s.jobs, jobID)
	return nil
}

// Jobs returns a snapshot of the registered jobs
func (s *Scheduler) Jobs() []*ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	return jobs
}

// Start begins executing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", Component("scheduler"))
}

// Stop halts the scheduler and cancels running jobs
func (s *Scheduler) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("scheduler stopped", Component("scheduler"))
}
