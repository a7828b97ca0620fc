// Package scheduler manages the lifecycle of deferred and background work:
// workflow runs, e-mail dispatch, delays, and outbound HTTP requests. Jobs
// live in memory only; there is no persistent job durability across process
// restarts, matching the subsystem's stated non-goals.
package scheduler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/floworc/engine/internal/apperr"
	"github.com/floworc/engine/internal/config"
	"github.com/floworc/engine/internal/domain"
	"github.com/floworc/engine/internal/eventbus"
	"github.com/floworc/engine/internal/logger"
	"github.com/floworc/engine/internal/observer"
	"github.com/floworc/engine/internal/realtime"
)

// WorkflowLoader loads a workflow graph by ID, for workflow_execution jobs.
type WorkflowLoader interface {
	FindByID(ctx context.Context, id string) (*domain.Workflow, error)
}

// WorkflowRunner runs a workflow to completion. A workflow_execution job
// kicks off a new run through this interface; it never duplicates the
// executor's own internal per-node dispatch.
type WorkflowRunner interface {
	Run(ctx context.Context, workflow *domain.Workflow, triggerData map[string]any) (*domain.Execution, error)
}

// EmailSender sends an e-mail for email_send jobs.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

// Scheduler is the job lifecycle manager described in §4.6: a state machine
// (pending -> running -> completed|failed, or pending -> cancelled), a
// periodic dispatch loop, and a 24h retention sweep.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job

	cfg        config.SchedulerConfig
	bus        *eventbus.Bus
	realtime   *realtime.Bridge
	logger     *logger.Logger
	emailer    EmailSender
	httpClient *http.Client
	loader     WorkflowLoader
	runner     WorkflowRunner

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Scheduler. A nil httpClient is replaced by a client with a
// 30-second timeout. emailer, loader, and runner may be nil; jobs of the
// corresponding type then fail immediately with a clear error rather than
// panicking.
func New(
	cfg config.SchedulerConfig,
	bus *eventbus.Bus,
	bridge *realtime.Bridge,
	log *logger.Logger,
	emailer EmailSender,
	httpClient *http.Client,
	loader WorkflowLoader,
	runner WorkflowRunner,
) *Scheduler {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scheduler{
		jobs:       make(map[string]*domain.Job),
		cfg:        cfg,
		bus:        bus,
		realtime:   bridge,
		logger:     log,
		emailer:    emailer,
		httpClient: httpClient,
		loader:     loader,
		runner:     runner,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the dispatch loop and retention sweep goroutines. It
// returns immediately; call Stop to shut them down.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)
	go s.dispatchLoop(ctx)
	go s.evictionLoop(ctx)
}

// Stop signals the background loops to exit and waits for them.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// Schedule enqueues a new job, assigning it an ID and pending status.
func (s *Scheduler) Schedule(ctx context.Context, userID string, jobType domain.JobType, scheduledAt time.Time, payload map[string]any) (*domain.Job, error) {
	now := time.Now()
	job := &domain.Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        jobType,
		Status:      domain.JobPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
		Payload:     payload,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.publishJobStatus(ctx, job)
	return job, nil
}

// Get returns a job by ID.
func (s *Scheduler) Get(id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperr.NotFound("job not found", nil).WithJob(id)
	}
	return job, nil
}

// Cancel transitions a pending job to cancelled. Jobs that are already
// running or terminal cannot be cancelled.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return apperr.NotFound("job not found", nil).WithJob(id)
	}
	if job.Status != domain.JobPending {
		s.mu.Unlock()
		return apperr.Scheduler("job cannot be cancelled once it has left pending", nil).WithJob(id)
	}
	now := time.Now()
	job.Status = domain.JobCancelled
	job.CancelledAt = &now
	job.UpdatedAt = now
	s.mu.Unlock()

	s.publishJobStatus(ctx, job)
	return nil
}

// ListByUser returns every job belonging to userID, oldest first.
func (s *Scheduler) ListByUser(userID string) []*domain.Job {
	return s.filterJobs(func(j *domain.Job) bool { return j.UserID == userID })
}

// ListActive returns every job still pending or running.
func (s *Scheduler) ListActive() []*domain.Job {
	return s.filterJobs(func(j *domain.Job) bool {
		return j.Status == domain.JobPending || j.Status == domain.JobRunning
	})
}

// ListByType returns every job of the given type.
func (s *Scheduler) ListByType(t domain.JobType) []*domain.Job {
	return s.filterJobs(func(j *domain.Job) bool { return j.Type == t })
}

func (s *Scheduler) filterJobs(keep func(*domain.Job) bool) []*domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Job
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := s.cfg.DispatchInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var due []*domain.Job
	for _, j := range s.jobs {
		if j.Status == domain.JobPending && !j.ScheduledAt.After(now) {
			j.Status = domain.JobRunning
			j.StartedAt = &now
			j.UpdatedAt = now
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, job := range due {
		s.publishJobStatus(ctx, job)
		go s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *domain.Job) {
	var result map[string]any
	var runErr error

	switch job.Type {
	case domain.JobDelay:
		// Already due by the time the dispatch loop picked it up: a delay
		// job's only work is the wait itself.
	case domain.JobEmailSend:
		result, runErr = s.runEmailSend(ctx, job)
	case domain.JobHTTPRequest:
		result, runErr = s.runHTTPRequest(ctx, job)
	case domain.JobWorkflowExecution:
		result, runErr = s.runWorkflowExecution(ctx, job)
	case domain.JobGeneric:
		// No built-in behavior: a generic job completes as soon as it is
		// dispatched; its payload is not inspected.
	default:
		runErr = apperr.Scheduler("unknown job type", nil).WithJob(job.ID)
	}

	s.finish(ctx, job, result, runErr)
}

func (s *Scheduler) finish(ctx context.Context, job *domain.Job, result map[string]any, runErr error) {
	now := time.Now()

	s.mu.Lock()
	job.UpdatedAt = now
	job.Result = result
	if runErr != nil {
		job.Status = domain.JobFailed
		job.FailedAt = &now
		job.Error = runErr.Error()
	} else {
		job.Status = domain.JobCompleted
		job.CompletedAt = &now
	}
	s.mu.Unlock()

	if runErr != nil && s.logger != nil {
		s.logger.WithJob(job.ID).ErrorContext(ctx, "job failed", "type", string(job.Type), "error", runErr)
	}
	s.publishJobStatus(ctx, job)
}

func (s *Scheduler) publishJobStatus(ctx context.Context, job *domain.Job) {
	if s.bus != nil {
		s.bus.Publish(ctx, observer.Event{
			Type:   observer.EventJobStatusUpdate,
			JobID:  job.ID,
			UserID: job.UserID,
			Status: string(job.Status),
		})
	}
	if s.realtime != nil {
		_ = s.realtime.PublishJobStatusUpdate(ctx, job)
		_ = s.realtime.PublishJobListUpdate(ctx, job.UserID, s.ListByUser(job.UserID))
	}
}

func (s *Scheduler) evictionLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *Scheduler) evictExpired() {
	retention := s.cfg.RetentionPeriod
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		if !j.IsTerminal() {
			continue
		}
		if j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
