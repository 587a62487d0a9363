package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/crawl"
	"github.com/sitewatch/sitewatch/internal/domain"
)

// finalizeTimeout bounds the terminal-state writes of a run. Finalization
// runs on a context detached from the run's own, so a run cancelled by
// shutdown still reaches a terminal status.
const finalizeTimeout = 10 * time.Second

// ExecuteJob runs one crawl for the job right now. It enforces the
// one-run-per-job guard, drives the full run state machine, and always
// recomputes the job's next scheduled run, whether the run succeeded or
// failed.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if !job.Active {
		o.log.Warn("Skipping execution of inactive job", "job_id", jobID)
		return nil
	}

	runCtx, cancelRun, acquireErr := o.acquireRun(ctx, jobID)
	if acquireErr != nil {
		return acquireErr
	}

	o.wg.Add(1)
	defer o.wg.Done()
	defer o.releaseRun(jobID, cancelRun)

	run := &domain.JobRun{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if createErr := o.runs.Create(ctx, run); createErr != nil {
		return fmt.Errorf("failed to create run record: %w", createErr)
	}

	startedAt := run.StartedAt
	if statusErr := o.jobs.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, &startedAt, nil); statusErr != nil {
		o.log.Error("Failed to mark job running", "job_id", job.ID, "error", statusErr.Error())
	}

	o.log.Info("Run started", "job_id", job.ID, "run_id", run.ID, "base_url", job.BaseURL)

	runErr := o.executeRun(runCtx, job, run)

	o.finalizeRun(ctx, job, run, runErr)

	return nil
}

// executeRun resolves the job's credential, performs the traversal, and
// applies the versioning policy to every crawled page. Counters and logs
// accumulate on the run record.
func (o *Orchestrator) executeRun(ctx context.Context, job *domain.CrawlJob, run *domain.JobRun) error {
	auth, authErr := o.resolveAuth(ctx, job)
	if authErr != nil {
		if errors.Is(authErr, authn.ErrSSOUnsupported) {
			run.Logs = append(run.Logs, domain.RunLogEntry{
				URL:              job.BaseURL,
				Error:            authErr.Error(),
				NeedsCredentials: true,
				LoginMethod:      "saml",
			})
		}
		return authErr
	}

	result, crawlErr := o.runner.Run(ctx, job, auth)
	if crawlErr != nil {
		return fmt.Errorf("traversal failed: %w", crawlErr)
	}

	run.URLsProcessed = result.Summary.URLsProcessed
	run.URLsSuccessful = result.Summary.URLsSuccessful
	run.URLsFailed = result.Summary.URLsFailed
	run.Logs = append(run.Logs, result.Errors...)

	// A cancelled traversal returns a partial result with no error. The
	// counters above are kept for the audit trail, but the run is failed.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("run cancelled: %w", ctxErr)
	}

	for _, page := range result.Pages {
		outcome, applyErr := o.versioner.Apply(ctx, job.TenantID, run.ID, page)
		if applyErr != nil {
			run.Logs = append(run.Logs, domain.RunLogEntry{URL: page.URL, Error: applyErr.Error()})
			run.URLsFailed++
			continue
		}

		switch {
		case outcome.Created:
			run.DocumentsCreated++
		case outcome.Updated:
			run.DocumentsUpdated++
		}
		if outcome.ChangeDetected {
			run.ChangesDetected++
		}

		// Indexing is best-effort; a downstream outage never fails the run.
		if outcome.Created || outcome.Updated {
			if indexErr := o.indexer.IndexVersion(ctx, outcome.Document); indexErr != nil {
				o.log.Warn("Failed to index document version",
					"url", page.URL, "error", indexErr.Error())
			}
		}
	}

	return nil
}

// resolveAuth loads and decrypts the job's credential, if any. Plaintext
// exists only inside the returned AuthConfig for the duration of the run.
func (o *Orchestrator) resolveAuth(ctx context.Context, job *domain.CrawlJob) (*authn.AuthConfig, error) {
	if job.CredentialID == nil || *job.CredentialID == "" {
		return nil, nil
	}

	cred, err := o.creds.GetByID(ctx, *job.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	payload, decryptErr := o.cipher.Decrypt(cred.EncryptedPayload)
	if decryptErr != nil {
		return nil, fmt.Errorf("failed to decrypt credential %s: %w", cred.ID, decryptErr)
	}

	auth, parseErr := authn.ParseAuthConfig(cred.Kind, payload)
	if parseErr != nil {
		return nil, parseErr
	}

	o.log.Debug("Credential resolved", "credential_id", cred.ID, "kind", cred.Kind)
	return auth, nil
}

// finalizeRun writes the run's terminal status, updates the job status, and
// recomputes the next scheduled run. A failed run never leaves the job
// without a next run time.
func (o *Orchestrator) finalizeRun(
	ctx context.Context,
	job *domain.CrawlJob,
	run *domain.JobRun,
	runErr error,
) {
	// Detach from run cancellation: a shutdown that interrupted the run must
	// not also strand the JobRun in the running state.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	completedAt := time.Now()
	run.CompletedAt = &completedAt

	jobStatus := domain.JobStatusCompleted
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		msg := runErr.Error()
		run.ErrorMessage = &msg
		jobStatus = domain.JobStatusFailed
	} else {
		run.Status = domain.RunStatusCompleted
	}

	if finalizeErr := o.runs.Finalize(ctx, run); finalizeErr != nil {
		o.log.Error("Failed to finalize run", "run_id", run.ID, "error", finalizeErr.Error())
	}

	lastRun := run.StartedAt
	nextRun := o.nextRunTime(job.Schedule)
	if statusErr := o.jobs.UpdateStatus(ctx, job.ID, jobStatus, &lastRun, nextRun); statusErr != nil {
		o.log.Error("Failed to update job status", "job_id", job.ID, "error", statusErr.Error())
	}

	if runErr != nil {
		o.log.Error("Run failed",
			"job_id", job.ID,
			"run_id", run.ID,
			"error", runErr.Error(),
		)
		return
	}

	o.log.Info("Run completed",
		"job_id", job.ID,
		"run_id", run.ID,
		"urls_processed", run.URLsProcessed,
		"documents_created", run.DocumentsCreated,
		"documents_updated", run.DocumentsUpdated,
		"changes_detected", run.ChangesDetected,
	)
}

// nextRunTime computes the next fire time for a cron expression, or nil
// when the expression no longer parses.
func (o *Orchestrator) nextRunTime(expr string) *time.Time {
	schedule, err := o.cronParser.Parse(expr)
	if err != nil {
		o.log.Warn("Cannot compute next run, invalid cron expression", "schedule", expr)
		return nil
	}
	next := schedule.Next(time.Now())
	return &next
}

// acquireRun claims the job's run slot. Returns ErrJobAlreadyRunning when a
// run is already in flight, and a per-run context cancelled on Shutdown.
func (o *Orchestrator) acquireRun(
	ctx context.Context,
	jobID string,
) (context.Context, context.CancelFunc, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, inFlight := o.running[jobID]; inFlight {
		return nil, nil, fmt.Errorf("%w: %s", ErrJobAlreadyRunning, jobID)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	o.running[jobID] = cancelRun
	return runCtx, cancelRun, nil
}

// releaseRun frees the job's run slot.
func (o *Orchestrator) releaseRun(jobID string, cancelRun context.CancelFunc) {
	cancelRun()
	o.mu.Lock()
	delete(o.running, jobID)
	o.mu.Unlock()
}

// buildCrawlOptions merges the job's limit overrides into traversal
// options. Zero values fall through to the template's limits downstream.
func buildCrawlOptions(job *domain.CrawlJob, hasCredential bool) crawl.Options {
	return crawl.Options{
		MaxDepth:      job.MaxDepth,
		MaxPages:      job.MaxPages,
		Delay:         time.Duration(job.DelayMS) * time.Millisecond,
		HasCredential: hasCredential,
	}
}
