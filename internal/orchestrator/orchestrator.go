package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/ternarybob/arbor"
	"go.uber.org/atomic"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/metrics"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

// Config bundles the orchestration knobs read from the process Config
// (§4.4, §4.1).
type Config struct {
	AppID           string
	Anonymous       bool
	Username        string
	Password        string
	MaxConcurrent   int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	FetchTimeout    time.Duration
	ArchiveRoot     string
	ArchiveMinBytes int64
	BuildDeadline   time.Duration
	StaleDeadline   time.Duration
}

// Orchestrator drives one job through the state machine described in
// §4.4: Starting -> Preparing -> Downloading -> CreatingArchive ->
// Completed -> Cleaned, with Error reachable from any non-terminal state.
// It is the single writer of Job.State and Job.Progress.
type Orchestrator struct {
	cfg Config

	adapter    interfaces.Adapter
	builder    interfaces.ArchiveBuilder
	workspace  interfaces.WorkspaceManager
	registry   interfaces.Registry
	logBus     interfaces.LogBus
	metaSource interfaces.MetadataFetcher

	log arbor.ILogger

	admitted atomic.Int32

	// cancelMu guards cancelFuncs and cancelledJobs, the bookkeeping that
	// lets an external Cancel call reach a running job's context and lets
	// fail() later tell a genuine failure apart from a requested
	// cancellation (§5 Cancellation, §6 Cleanup).
	cancelMu      sync.Mutex
	cancelFuncs   map[string]context.CancelFunc
	cancelledJobs map[string]bool
}

// New wires an Orchestrator from its leaf dependencies. All dependencies
// are accepted as interfaces so tests can substitute fakes (§9 Design
// Notes, dependency injection over globals).
func New(cfg Config, adapter interfaces.Adapter, builder interfaces.ArchiveBuilder, ws interfaces.WorkspaceManager, reg interfaces.Registry, logBus interfaces.LogBus, meta interfaces.MetadataFetcher, log arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		cfg:           cfg,
		adapter:       adapter,
		builder:       builder,
		workspace:     ws,
		registry:      reg,
		logBus:        logBus,
		metaSource:    meta,
		log:           log,
		cancelFuncs:   make(map[string]context.CancelFunc),
		cancelledJobs: make(map[string]bool),
	}
}

// Submit validates a workshop URL, fetches metadata, admits the job under
// the concurrency cap, and starts its pipeline in the background. It
// returns the new job id or a classified AppError for any synchronous
// rejection (§4.1, §7).
func (o *Orchestrator) Submit(ctx context.Context, rawURL string) (string, error) {
	itemID, err := ParseWorkshopURL(rawURL)
	if err != nil {
		return "", err
	}

	meta, err := o.metaSource.Fetch(itemID)
	if err != nil {
		return "", err
	}
	if !meta.Valid {
		return "", models.NewAppError(models.ErrInvalidItem, "workshop item metadata is not valid")
	}
	if o.cfg.AppID != "" && meta.ApplicationID != "" && meta.ApplicationID != o.cfg.AppID {
		return "", models.NewAppError(models.ErrWrongApplication,
			fmt.Sprintf("item belongs to app %s, expected %s", meta.ApplicationID, o.cfg.AppID))
	}

	if !o.tryAdmit() {
		current := int(o.admitted.Load())
		return "", models.NewAppErrorWithData(models.ErrCapacityExhausted, "maximum concurrent downloads reached",
			map[string]interface{}{"current": current, "max": o.cfg.MaxConcurrent})
	}

	jobID := o.registry.Submit(itemID, meta)
	metrics.JobsActive.Inc()

	go o.run(jobID)

	return jobID, nil
}

func (o *Orchestrator) tryAdmit() bool {
	for {
		cur := o.admitted.Load()
		if int(cur) >= o.cfg.MaxConcurrent {
			return false
		}
		if o.admitted.CAS(cur, cur+1) {
			return true
		}
	}
}

func (o *Orchestrator) release() {
	o.admitted.Dec()
	metrics.JobsActive.Dec()
}

// Cancel requests early termination of a running job by cancelling its
// pipeline context. It reports false if jobID has no live context,
// meaning it is unknown or has already reached a terminal state.
// Cancellation itself finishes asynchronously: run() observes the
// cancelled context, unwinds the pipeline, and disposes the workspace
// before the job disappears from the Registry.
func (o *Orchestrator) Cancel(jobID string) bool {
	o.cancelMu.Lock()
	cancel, ok := o.cancelFuncs[jobID]
	if ok {
		o.cancelledJobs[jobID] = true
	}
	o.cancelMu.Unlock()

	if !ok {
		return false
	}
	cancel()
	return true
}

func (o *Orchestrator) registerCancel(jobID string, cancel context.CancelFunc) {
	o.cancelMu.Lock()
	o.cancelFuncs[jobID] = cancel
	o.cancelMu.Unlock()
}

func (o *Orchestrator) clearCancel(jobID string) {
	o.cancelMu.Lock()
	delete(o.cancelFuncs, jobID)
	delete(o.cancelledJobs, jobID)
	o.cancelMu.Unlock()
}

func (o *Orchestrator) wasCancelled(jobID string) bool {
	o.cancelMu.Lock()
	defer o.cancelMu.Unlock()
	return o.cancelledJobs[jobID]
}

// mutate applies fn to job's fields under the Registry's write lock, so a
// concurrent Status/List snapshot read never observes a partially-written
// Job (§5, §8: "readers take consistent snapshots").
func (o *Orchestrator) mutate(job *models.Job, fn func(*models.Job)) {
	o.registry.Mutate(job.ID, fn)
}

// run executes the full pipeline for one job and always releases the
// admission slot. The job ends Completed or Error, or, when it was
// cancelled, Cleaned and dropped from the Registry (see fail).
func (o *Orchestrator) run(jobID string) {
	defer o.release()

	job, ok := o.registry.Job(jobID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.FetchTimeout+o.cfg.BuildDeadline)
	defer cancel()
	o.registerCancel(jobID, cancel)
	defer o.clearCancel(jobID)

	o.publish(models.LevelInfo, jobID, fmt.Sprintf("job %s starting for item %s", jobID, job.WorkshopItemID))

	if !o.transition(job, models.JobPreparing) {
		return
	}

	wsPath, err := o.workspace.Allocate(jobID)
	if err != nil {
		o.fail(job, models.KindOf(err), err)
		return
	}
	o.mutate(job, func(j *models.Job) { j.WorkspacePath = wsPath })

	if !o.transition(job, models.JobDownloading) {
		return
	}

	if err := o.ensureSession(ctx, job); err != nil {
		o.fail(job, models.KindOf(err), err)
		return
	}

	outcome, err := o.fetchWithRetry(ctx, job)
	if err != nil {
		o.fail(job, models.KindOf(err), err)
		return
	}
	if outcome.Kind != interfaces.OutcomeContentWritten {
		o.fail(job, outcomeErrorKind(outcome.Kind), fmt.Errorf("adapter outcome: %s", outcome.Detail))
		return
	}

	if outcome.ContentPath == "" {
		o.fail(job, models.ErrNoContent, fmt.Errorf("adapter reported success but located no content"))
		return
	}

	if !o.transition(job, models.JobCreatingArchive) {
		return
	}

	archivePath := archiveOutputPath(o.cfg.ArchiveRoot, job.WorkshopItemID)
	buildCtx, buildCancel := context.WithTimeout(ctx, o.cfg.BuildDeadline)
	defer buildCancel()

	err = o.builder.Build(buildCtx, outcome.ContentPath, archivePath, func(p interfaces.ArchiveProgress) {
		o.mutate(job, func(j *models.Job) { j.Progress = 65 + (p.Percent * 35 / 100) })
		o.publish(models.LevelDebug, jobID, fmt.Sprintf("archive progress %d%%", p.Percent))
	})
	if err != nil {
		o.fail(job, models.ErrInternal, err)
		return
	}

	info, statErr := os.Stat(archivePath)
	if statErr != nil {
		o.fail(job, models.ErrInternal, statErr)
		return
	}
	if info.Size() < o.cfg.ArchiveMinBytes {
		o.fail(job, models.ErrArchiveTooSmall, fmt.Errorf("archive is %d bytes, floor is %d", info.Size(), o.cfg.ArchiveMinBytes))
		return
	}

	o.mutate(job, func(j *models.Job) {
		j.ArchivePath = archivePath
		j.ArchiveSize = info.Size()
		j.Progress = 100
		j.FinishedAt = time.Now()
	})
	metrics.ArchiveBytesTotal.Add(float64(info.Size()))

	if !o.transition(job, models.JobCompleted) {
		return
	}

	// The archive already lives outside the workspace at this point, so the
	// workspace itself has nothing left to serve; dispose it now rather than
	// leaving it for the sweeper (§4.3: "no workspace is leaked on any exit
	// path... called on terminal success after the archive is produced and
	// moved or referenced outside the workspace").
	_ = o.workspace.Dispose(job.WorkspacePath, false)

	metrics.JobsTotal.WithLabelValues("completed").Inc()
	o.publish(models.LevelSuccess, jobID, fmt.Sprintf("job %s completed, archive %s", jobID, archivePath))
	o.publishHistory(job)
}

// fetchWithRetry retries retryable Adapter outcomes with linear backoff up
// to MaxAttempts, draining the Adapter's event channel into progress
// ticks and log lines on every attempt (§4.1, §4.4).
func (o *Orchestrator) fetchWithRetry(ctx context.Context, job *models.Job) (interfaces.AdapterOutcome, error) {
	var final interfaces.AdapterOutcome

	err := retry.Do(
		func() error {
			var attemptCount int
			o.mutate(job, func(j *models.Job) {
				j.AttemptCount++
				attemptCount = j.AttemptCount
			})
			started := time.Now()

			outcome := o.runOneFetch(ctx, job)
			final = outcome

			o.mutate(job, func(j *models.Job) {
				j.Attempts = append(j.Attempts, models.AttemptRecord{
					Attempt:   attemptCount,
					Outcome:   string(outcome.Kind),
					StartedAt: started,
					EndedAt:   time.Now(),
				})
			})
			metrics.AdapterAttempts.WithLabelValues(string(outcome.Kind)).Inc()

			if outcome.Kind == interfaces.OutcomeContentWritten {
				return nil
			}
			if outcome.Retryable() {
				return fmt.Errorf("retryable adapter outcome: %s", outcome.Kind)
			}
			return retry.Unrecoverable(fmt.Errorf("terminal adapter outcome: %s", outcome.Kind))
		},
		retry.Attempts(uint(o.cfg.MaxAttempts)),
		retry.Delay(o.cfg.RetryBaseDelay),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return o.cfg.RetryBaseDelay * time.Duration(n+1)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)

	if err != nil && final.Kind == "" {
		return interfaces.AdapterOutcome{}, models.WrapAppError(models.ErrTransientFailure, "adapter never produced an outcome", err)
	}

	return final, nil
}

// ensureSession implements §4.4's "session-aware first attempt": in
// anonymous mode the session machinery is skipped entirely; if the
// Adapter's cached session is already valid, nothing needs to happen; and
// otherwise a full login is attempted so the first real fetch can run
// cached rather than repeating the same login twice. A second-factor
// prompt during that login fails the job immediately per §4.4; any other
// verify failure is left for the real fetch attempt to classify.
func (o *Orchestrator) ensureSession(ctx context.Context, job *models.Job) error {
	if o.cfg.Anonymous || o.adapter.SessionValid() {
		return nil
	}

	_, err := o.adapter.VerifySession(ctx, o.cfg.Username, o.cfg.Password)
	if err != nil && models.KindOf(err) == models.ErrSecondFactorRequired {
		return err
	}
	if err != nil {
		o.publish(models.LevelWarning, job.ID, fmt.Sprintf("session verify before first attempt failed: %v", err))
	}
	return nil
}

func (o *Orchestrator) runOneFetch(ctx context.Context, job *models.Job) interfaces.AdapterOutcome {
	req := interfaces.FetchRequest{
		WorkspacePath: job.WorkspacePath,
		AppID:         o.cfg.AppID,
		ItemID:        job.WorkshopItemID,
		CachedSession: o.adapter.SessionValid(),
		Anonymous:     o.cfg.Anonymous,
	}

	events := o.adapter.Fetch(ctx, req)

	progress := 10
	o.mutate(job, func(j *models.Job) { j.Progress = progress })

	var outcome interfaces.AdapterOutcome
	for ev := range events {
		switch ev.Kind {
		case interfaces.EventProgressTick:
			if ev.Delta > progress && ev.Delta <= 60 {
				progress = ev.Delta
				o.mutate(job, func(j *models.Job) { j.Progress = progress })
			}
		case interfaces.EventOutputLine:
			o.publish(models.LevelDebug, job.ID, ev.Line)
		case interfaces.EventOutcome:
			outcome = ev.Outcome
		}
	}

	return outcome
}

// transition applies a state graph move, recording the target state on
// the job and failing loudly (via Error transition) if the graph rejects
// the move (JI-3, defensive against a future bug rather than expected
// runtime behavior).
func (o *Orchestrator) transition(job *models.Job, to models.JobState) bool {
	if !models.CanTransition(job.State, to) {
		o.fail(job, models.ErrInternal, fmt.Errorf("illegal transition %s -> %s", job.State, to))
		return false
	}
	o.mutate(job, func(j *models.Job) { j.State = to })
	return true
}

// fail records a terminal failure and disposes the job's workspace. A
// failure caused by an external Cancel call is reported as Cancelled and
// carried straight through to Cleaned rather than left in Error, then
// dropped from the Registry: cancellation completes a Cleanup request,
// not a pipeline error (§5 Cancellation, §6 Cleanup).
func (o *Orchestrator) fail(job *models.Job, kind models.ErrorKind, cause error) {
	cancelled := o.wasCancelled(job.ID)
	if cancelled {
		kind = models.ErrCancelled
	}

	o.mutate(job, func(j *models.Job) {
		j.LastError = kind
		j.State = models.JobError
		j.FinishedAt = time.Now()
	})
	metrics.JobsTotal.WithLabelValues("error").Inc()
	o.publish(models.LevelError, job.ID, fmt.Sprintf("job %s failed: %v", job.ID, cause))

	if job.WorkspacePath != "" {
		_ = o.workspace.Dispose(job.WorkspacePath, true)
	}

	o.publishHistory(job)

	if cancelled {
		o.mutate(job, func(j *models.Job) { j.State = models.JobCleaned })
		o.registry.Forget(job.ID)
	}
}

// publishHistory emits the reduced admin-facing projection of a job that
// just reached a terminal state, for the out-of-scope admin dashboard to
// pick up off the bus (SPEC_FULL §3, §4.4).
func (o *Orchestrator) publishHistory(job *models.Job) {
	if o.logBus == nil {
		return
	}
	entry := models.AdminHistoryEntry{
		JobID:       job.ID,
		ItemID:      job.WorkshopItemID,
		Title:       job.Metadata.Title,
		State:       job.State,
		Duration:    job.FinishedAt.Sub(job.StartedAt),
		ArchiveSize: job.ArchiveSize,
	}
	o.logBus.Publish(models.LogRecord{
		Timestamp: time.Now(),
		Level:     models.LevelInfo,
		Source:    "admin-history",
		Message:   fmt.Sprintf("job %s reached %s", job.ID, job.State),
		Data:      map[string]interface{}{"history": entry},
	})
}

func (o *Orchestrator) publish(level models.LogLevel, jobID, message string) {
	if o.logBus == nil {
		return
	}
	o.logBus.Publish(models.LogRecord{
		Timestamp: time.Now(),
		Level:     level,
		Source:    "orchestrator",
		Message:   message,
		Data:      map[string]interface{}{"jobId": jobID},
	})
}

func outcomeErrorKind(kind interfaces.AdapterOutcomeKind) models.ErrorKind {
	switch kind {
	case interfaces.OutcomeNeedsSecondFactor:
		return models.ErrSecondFactorRequired
	case interfaces.OutcomeSessionExpired, interfaces.OutcomeAccessDenied:
		return models.ErrAccessDenied
	case interfaces.OutcomeNotFound:
		return models.ErrNotFound
	case interfaces.OutcomeTimeout:
		return models.ErrTimeout
	default:
		return models.ErrTransientFailure
	}
}

// archiveOutputPath names the archive {itemId}.zip per the persisted-state
// layout (§6). The file lives directly under ArchiveRoot rather than
// inside the job's workspace, since the workspace is disposed the moment
// the job reaches Completed (§4.3).
func archiveOutputPath(root, itemID string) string {
	return root + string(os.PathSeparator) + itemID + ".zip"
}
