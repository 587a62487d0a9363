// Package scheduler owns the registry of recurring crawl jobs and drives
// their runs on a cron cadence. The orchestrator is an explicit, constructed
// instance owned by the composition root, with start/stop lifecycle methods;
// there is no package-level singleton.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/changes"
	"github.com/sitewatch/sitewatch/internal/crawl"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/indexing"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/secrets"
)

// ErrJobAlreadyRunning is returned when an execution attempt targets a job
// with a run still in flight. At most one concurrent run per job is allowed.
var ErrJobAlreadyRunning = errors.New("job already has a run in flight")

// ErrNotInitialized is returned when the orchestrator is used before Start.
var ErrNotInitialized = errors.New("scheduler not initialized")

// JobStore is the job persistence surface the orchestrator needs.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*domain.CrawlJob, error)
	ListActive(ctx context.Context) ([]*domain.CrawlJob, error)
	UpdateStatus(ctx context.Context, id, status string, lastRun, nextRun *time.Time) error
}

// RunStore is the run persistence surface the orchestrator needs.
type RunStore interface {
	Create(ctx context.Context, run *domain.JobRun) error
	Finalize(ctx context.Context, run *domain.JobRun) error
}

// CredentialStore resolves credential descriptors by ID.
type CredentialStore interface {
	GetByID(ctx context.Context, id string) (*domain.CredentialDescriptor, error)
}

// CrawlRunner executes one traversal for a job. The default runner builds
// a browsing context and fetcher per run; tests substitute a stub.
type CrawlRunner interface {
	Run(ctx context.Context, job *domain.CrawlJob, auth *authn.AuthConfig) (*crawl.Result, error)
}

// Status is a snapshot of the trigger registry for operational visibility.
type Status struct {
	Initialized   bool     `json:"initialized"`
	ScheduledJobs int      `json:"scheduled_jobs"`
	JobIDs        []string `json:"job_ids"`
	RunningJobs   []string `json:"running_jobs"`
}

// Orchestrator registers one cron trigger per job and executes runs.
// Triggers fire independently; multiple jobs may run concurrently, but each
// job has at most one run in flight.
type Orchestrator struct {
	log       logger.Interface
	jobs      JobStore
	runs      RunStore
	creds     CredentialStore
	versioner *changes.Versioner
	indexer   indexing.DocumentIndexer
	cipher    *secrets.Cipher
	runner    CrawlRunner

	cron       *cron.Cron
	cronParser cron.Parser

	mu          sync.Mutex
	entries     map[string]cron.EntryID
	running     map[string]context.CancelFunc
	initialized bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Logger      logger.Interface
	Jobs        JobStore
	Runs        RunStore
	Credentials CredentialStore
	Versioner   *changes.Versioner
	Indexer     indexing.DocumentIndexer
	Cipher      *secrets.Cipher
	Runner      CrawlRunner
}

// New creates an orchestrator. Call Start before scheduling jobs.
func New(deps Deps) *Orchestrator {
	// Standard 5-field cron format: minute hour day month weekday.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	indexer := deps.Indexer
	if indexer == nil {
		indexer = indexing.NoopIndexer{}
	}

	runner := deps.Runner
	if runner == nil {
		runner = NewDefaultRunner(deps.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		log:        deps.Logger,
		jobs:       deps.Jobs,
		runs:       deps.Runs,
		creds:      deps.Credentials,
		versioner:  deps.Versioner,
		indexer:    indexer,
		cipher:     deps.Cipher,
		runner:     runner,
		cron:       cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		cronParser: parser,
		entries:    make(map[string]cron.EntryID),
		running:    make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ValidateSchedule checks a cron expression without registering it.
func (o *Orchestrator) ValidateSchedule(expr string) error {
	if _, err := o.cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Start loads all active jobs and registers a trigger for each. Jobs with
// invalid cron expressions are logged and skipped; they never prevent the
// scheduler from starting.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	o.initialized = true
	o.mu.Unlock()

	if err := o.ReloadJobs(ctx); err != nil {
		return err
	}

	o.cron.Start()
	o.log.Info("Scheduler started", "scheduled_jobs", o.scheduledCount())

	return nil
}

// ScheduleJob registers (or replaces) a trigger for the job. Idempotent.
func (o *Orchestrator) ScheduleJob(job *domain.CrawlJob) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return ErrNotInitialized
	}

	schedule, parseErr := o.cronParser.Parse(job.Schedule)
	if parseErr != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, parseErr)
	}

	if entryID, exists := o.entries[job.ID]; exists {
		o.cron.Remove(entryID)
		delete(o.entries, job.ID)
	}

	jobID := job.ID
	entryID, addErr := o.cron.AddFunc(job.Schedule, func() {
		if execErr := o.ExecuteJob(o.ctx, jobID); execErr != nil {
			if errors.Is(execErr, ErrJobAlreadyRunning) {
				o.log.Warn("Skipping scheduled trigger, run still in flight", "job_id", jobID)
				return
			}
			o.log.Error("Scheduled run failed to start", "job_id", jobID, "error", execErr.Error())
		}
	})
	if addErr != nil {
		return fmt.Errorf("failed to add cron trigger: %w", addErr)
	}

	o.entries[job.ID] = entryID
	o.log.Info("Job scheduled",
		"job_id", job.ID,
		"schedule", job.Schedule,
		"next_run", schedule.Next(time.Now()).Format(time.RFC3339),
	)

	return nil
}

// UnscheduleJob removes a job's trigger. Removing an unknown job is a no-op.
func (o *Orchestrator) UnscheduleJob(jobID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if entryID, exists := o.entries[jobID]; exists {
		o.cron.Remove(entryID)
		delete(o.entries, jobID)
		o.log.Info("Job unscheduled", "job_id", jobID)
	}
}

// ReloadJobs stops all triggers and re-registers them from the active job
// set. Used after jobs are added or edited.
func (o *Orchestrator) ReloadJobs(ctx context.Context) error {
	jobs, err := o.jobs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active jobs: %w", err)
	}

	o.mu.Lock()
	for id, entryID := range o.entries {
		o.cron.Remove(entryID)
		delete(o.entries, id)
	}
	o.mu.Unlock()

	for _, job := range jobs {
		if scheduleErr := o.ScheduleJob(job); scheduleErr != nil {
			o.log.Error("Failed to schedule job, skipping",
				"job_id", job.ID,
				"schedule", job.Schedule,
				"error", scheduleErr.Error(),
			)
		}
	}

	o.log.Info("Jobs reloaded", "active", len(jobs), "scheduled", o.scheduledCount())
	return nil
}

// TriggerJob starts a run in the background, for on-demand execution.
// Returns ErrJobAlreadyRunning when a run is already in flight.
func (o *Orchestrator) TriggerJob(jobID string) error {
	o.mu.Lock()
	if !o.initialized {
		o.mu.Unlock()
		return ErrNotInitialized
	}
	if _, inFlight := o.running[jobID]; inFlight {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobAlreadyRunning, jobID)
	}
	o.mu.Unlock()

	go func() {
		if err := o.ExecuteJob(o.ctx, jobID); err != nil {
			o.log.Error("On-demand run failed to start", "job_id", jobID, "error", err.Error())
		}
	}()

	return nil
}

// Status returns a snapshot of the trigger registry.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	jobIDs := make([]string, 0, len(o.entries))
	for id := range o.entries {
		jobIDs = append(jobIDs, id)
	}
	sort.Strings(jobIDs)

	runningIDs := make([]string, 0, len(o.running))
	for id := range o.running {
		runningIDs = append(runningIDs, id)
	}
	sort.Strings(runningIDs)

	return Status{
		Initialized:   o.initialized,
		ScheduledJobs: len(jobIDs),
		JobIDs:        jobIDs,
		RunningJobs:   runningIDs,
	}
}

// Shutdown stops all triggers, cancels in-flight runs, and clears the
// registry. Safe to call from a process-exit handler, and safe to call more
// than once.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if !o.initialized {
		o.mu.Unlock()
		return
	}
	o.initialized = false

	for id, entryID := range o.entries {
		o.cron.Remove(entryID)
		delete(o.entries, id)
	}
	for id, cancelRun := range o.running {
		o.log.Info("Cancelling in-flight run", "job_id", id)
		cancelRun()
	}
	o.mu.Unlock()

	o.cancel()
	stopCtx := o.cron.Stop()
	<-stopCtx.Done()
	o.wg.Wait()

	o.log.Info("Scheduler stopped")
}

// scheduledCount returns the number of registered triggers.
func (o *Orchestrator) scheduledCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}
