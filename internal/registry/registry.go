package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

// deliveredDropDelay is the "short delay" §4.5 gives a caller to retry a
// dropped connection before the Job record disappears out from under it.
const deliveredDropDelay = 30 * time.Second

// Registry is the in-memory job table backing status lookups and archive
// delivery. It is intentionally process-local (§6 Non-goals: no
// persistence across restarts).
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job

	delivered map[string]bool
	dropDelay time.Duration
}

var _ interfaces.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{
		jobs:      make(map[string]*models.Job),
		delivered: make(map[string]bool),
		dropDelay: deliveredDropDelay,
	}
}

// newWithDropDelay lets tests shrink the delivered-drop grace period
// instead of waiting out the real one.
func newWithDropDelay(delay time.Duration) *Registry {
	r := New()
	r.dropDelay = delay
	return r
}

// Submit registers a new job in JobStarting state and returns its ID.
func (r *Registry) Submit(itemID string, metadata models.Metadata) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[id] = &models.Job{
		ID:             id,
		WorkshopItemID: itemID,
		State:          models.JobStarting,
		Metadata:       metadata,
		StartedAt:      time.Now(),
	}
	return id
}

// Job returns the mutable job record for orchestration code. Callers
// outside the orchestrator should prefer Status, which returns an
// immutable snapshot.
func (r *Registry) Job(jobID string) (*models.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[jobID]
	return j, ok
}

// Mutate applies fn to jobID's record while holding the write lock, giving
// the Orchestrator's field updates a consistent boundary against
// concurrent Status/List reads instead of racing them (§5, §8).
func (r *Registry) Mutate(jobID string, fn func(*models.Job)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// Status returns a point-in-time, JSON-serializable view of a job.
func (r *Registry) Status(jobID string) (models.Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return models.Snapshot{}, false
	}
	return j.ToSnapshot(), true
}

// List returns a snapshot of every known job, most recently started
// first.
func (r *Registry) List() []models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Snapshot, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.ToSnapshot())
	}
	for i := 0; i < len(out); i++ {
		for k := i + 1; k < len(out); k++ {
			if out[k].StartedAt.After(out[i].StartedAt) {
				out[i], out[k] = out[k], out[i]
			}
		}
	}
	return out
}

// Forget removes a completed or errored job from the table. It refuses to
// remove a job that is still in flight.
func (r *Registry) Forget(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return false
	}
	if !j.State.Terminal() {
		return false
	}
	delete(r.jobs, jobID)
	delete(r.delivered, jobID)
	return true
}

// MarkDelivered records that a completed job's archive has been fetched
// whole, then schedules the Job record's removal after a short grace
// period (§4.5: "on successful whole-file delivery the Registry schedules
// workspace disposal and, after a short delay, drops the Job record").
// The workspace itself is already gone by this point, disposed by the
// Orchestrator the moment the job reached Completed; this timer only
// needs to drop the now-redundant Registry entry.
func (r *Registry) MarkDelivered(jobID string) {
	r.mu.Lock()
	r.delivered[jobID] = true
	r.mu.Unlock()

	time.AfterFunc(r.dropDelay, func() {
		r.Forget(jobID)
	})
}

// Fetch opens the archive file for a completed job, honoring a single
// optional byte range (RFC 7233 subset: one range, no multipart, §4.7).
func (r *Registry) Fetch(jobID string, rng *interfaces.ByteRange) (interfaces.FetchResult, error) {
	r.mu.RLock()
	j, ok := r.jobs[jobID]
	r.mu.RUnlock()

	if !ok {
		return interfaces.FetchResult{}, models.NewAppError(models.ErrNotFound, fmt.Sprintf("job %s not found", jobID))
	}
	if j.State != models.JobCompleted {
		return interfaces.FetchResult{}, models.NewAppError(models.ErrNotFound, fmt.Sprintf("job %s has no completed archive", jobID))
	}

	info, err := os.Stat(j.ArchivePath)
	if err != nil {
		return interfaces.FetchResult{}, models.WrapAppError(models.ErrNotFound, "archive file missing", err)
	}

	etag := fmt.Sprintf("%q", fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixMilli()))

	f, err := os.Open(j.ArchivePath)
	if err != nil {
		return interfaces.FetchResult{}, models.WrapAppError(models.ErrInternal, "open archive file", err)
	}

	size := info.Size()
	start, end := int64(0), size-1
	partial := false

	if rng != nil {
		partial = true
		start, end = rng.Start, rng.End
		if end < 0 || end >= size {
			end = size - 1
		}
		if start < 0 || start > end {
			f.Close()
			return interfaces.FetchResult{}, models.NewAppError(models.ErrRangeNotSatisfiable, "unsatisfiable byte range")
		}
		if _, err := f.Seek(start, 0); err != nil {
			f.Close()
			return interfaces.FetchResult{}, models.WrapAppError(models.ErrInternal, "seek archive file", err)
		}
	}

	return interfaces.FetchResult{
		Reader:     f,
		Size:       size,
		RangeStart: start,
		RangeEnd:   end,
		Partial:    partial,
		ETag:       etag,
	}, nil
}

// HumanSize is a small formatting helper for admin-list/log output,
// grounded on the teacher's use of dustin/go-humanize for byte counts.
func HumanSize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}
