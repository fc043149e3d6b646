package orchestrator

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
	"github.com/94faddy/dz-wrokshop/internal/models"
)

// Sweeper periodically disposes stale workspace directories left behind
// by crashed or abandoned jobs (§4.3), and cancels Job records that have
// sat in a non-terminal state past the stale deadline (§5, "Stale
// non-terminal job deadline: 2h from startedAt"). It runs independently
// of any specific job's lifecycle.
type Sweeper struct {
	cron          *cron.Cron
	workspace     interfaces.WorkspaceManager
	registry      interfaces.Registry
	orchestrator  interfaces.OrchestratorService
	staleDeadline time.Duration
	log           arbor.ILogger
}

// NewSweeper schedules a periodic sweep on the given cron spec (e.g.
// "@every 10m"), mirroring the periodic-job pattern used across the
// example pack rather than a bare time.Ticker.
func NewSweeper(spec string, staleDeadline time.Duration, ws interfaces.WorkspaceManager, reg interfaces.Registry, orch interfaces.OrchestratorService, log arbor.ILogger) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{
		cron:          c,
		workspace:     ws,
		registry:      reg,
		orchestrator:  orch,
		staleDeadline: staleDeadline,
		log:           log,
	}

	_, err := c.AddFunc(spec, s.sweep)
	if err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }
func (s *Sweeper) Stop()  { s.cron.Stop() }

func (s *Sweeper) sweep() {
	s.cancelStaleJobs()

	removed, err := s.workspace.SweepAll()
	if err != nil {
		s.log.Error().Err(err).Msg("workspace sweep failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("swept stale workspaces")
	}
}

// cancelStaleJobs finds jobs that have sat past the stale deadline and
// clears them out. A non-terminal job is cancelled through the
// Orchestrator so its workspace is disposed the same way an explicit
// Cleanup call would (§4.4 "the periodic sweeper catches residuals whose
// owning job has been dropped"). A Completed job that nobody ever fetched
// has already had its workspace disposed at build time, so it only needs
// dropping from the Registry (§4.5: "A Completed job that is never
// fetched is disposed by the periodic sweeper after the same wall-clock
// deadline as other non-terminal jobs").
func (s *Sweeper) cancelStaleJobs() {
	cutoff := time.Now().Add(-s.staleDeadline)

	for _, snap := range s.registry.List() {
		if snap.StartedAt.After(cutoff) {
			continue
		}

		switch {
		case snap.State == models.JobCompleted:
			if s.registry.Forget(snap.ID) {
				s.log.Warn().Str("jobId", snap.ID).Msg("dropped completed job that was never fetched")
			}
		case !snap.State.Terminal():
			if s.orchestrator.Cancel(snap.ID) {
				s.log.Warn().Str("jobId", snap.ID).Str("state", string(snap.State)).
					Msg("cancelled job stuck past the stale deadline")
			}
		}
	}
}
