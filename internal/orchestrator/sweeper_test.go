package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

type sweeperFakeRegistry struct {
	snapshots []models.Snapshot
	forgotten map[string]bool
}

func (r *sweeperFakeRegistry) Submit(itemID string, metadata models.Metadata) string { return "" }
func (r *sweeperFakeRegistry) Status(jobID string) (models.Snapshot, bool)           { return models.Snapshot{}, false }
func (r *sweeperFakeRegistry) Fetch(jobID string, rng *interfaces.ByteRange) (interfaces.FetchResult, error) {
	return interfaces.FetchResult{}, nil
}
func (r *sweeperFakeRegistry) Job(jobID string) (*models.Job, bool) { return nil, false }
func (r *sweeperFakeRegistry) Mutate(jobID string, fn func(*models.Job)) bool { return false }
func (r *sweeperFakeRegistry) List() []models.Snapshot              { return r.snapshots }
func (r *sweeperFakeRegistry) MarkDelivered(jobID string)           {}
func (r *sweeperFakeRegistry) Forget(jobID string) bool {
	if r.forgotten == nil {
		r.forgotten = map[string]bool{}
	}
	r.forgotten[jobID] = true
	return true
}

type sweeperFakeOrchestrator struct {
	cancelled map[string]bool
}

func (o *sweeperFakeOrchestrator) Submit(ctx context.Context, rawURL string) (string, error) {
	return "", nil
}

func (o *sweeperFakeOrchestrator) Cancel(jobID string) bool {
	if o.cancelled == nil {
		o.cancelled = map[string]bool{}
	}
	o.cancelled[jobID] = true
	return true
}

func newSweeperUnderTest(reg *sweeperFakeRegistry, orch *sweeperFakeOrchestrator, staleDeadline time.Duration) *Sweeper {
	return &Sweeper{
		registry:      reg,
		orchestrator:  orch,
		staleDeadline: staleDeadline,
		log:           arbor.NewLogger(),
	}
}

func TestCancelStaleJobsCancelsStuckNonTerminalJob(t *testing.T) {
	reg := &sweeperFakeRegistry{snapshots: []models.Snapshot{
		{ID: "job-1", State: models.JobDownloading, StartedAt: time.Now().Add(-3 * time.Hour)},
	}}
	orch := &sweeperFakeOrchestrator{}
	s := newSweeperUnderTest(reg, orch, 2*time.Hour)

	s.cancelStaleJobs()

	assert.True(t, orch.cancelled["job-1"])
}

func TestCancelStaleJobsLeavesFreshNonTerminalJobAlone(t *testing.T) {
	reg := &sweeperFakeRegistry{snapshots: []models.Snapshot{
		{ID: "job-1", State: models.JobDownloading, StartedAt: time.Now()},
	}}
	orch := &sweeperFakeOrchestrator{}
	s := newSweeperUnderTest(reg, orch, 2*time.Hour)

	s.cancelStaleJobs()

	assert.False(t, orch.cancelled["job-1"])
}

func TestCancelStaleJobsDropsStaleCompletedJobWithoutCancelling(t *testing.T) {
	reg := &sweeperFakeRegistry{snapshots: []models.Snapshot{
		{ID: "job-1", State: models.JobCompleted, StartedAt: time.Now().Add(-3 * time.Hour)},
	}}
	orch := &sweeperFakeOrchestrator{}
	s := newSweeperUnderTest(reg, orch, 2*time.Hour)

	s.cancelStaleJobs()

	assert.True(t, reg.forgotten["job-1"])
	assert.False(t, orch.cancelled["job-1"], "a completed job's workspace is already disposed, no cancel needed")
}

func TestCancelStaleJobsSkipsAlreadyTerminalJob(t *testing.T) {
	reg := &sweeperFakeRegistry{snapshots: []models.Snapshot{
		{ID: "job-1", State: models.JobError, StartedAt: time.Now().Add(-3 * time.Hour)},
	}}
	orch := &sweeperFakeOrchestrator{}
	s := newSweeperUnderTest(reg, orch, 2*time.Hour)

	s.cancelStaleJobs()

	require.False(t, orch.cancelled["job-1"])
	assert.False(t, reg.forgotten["job-1"])
}
