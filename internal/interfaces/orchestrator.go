package interfaces

import "context"

// OrchestratorService is the HTTP layer's view of the Download
// Orchestrator: submit a job, and request cancellation of a running one.
// Keeping this as a narrow interface (rather than depending on the
// concrete orchestrator type) lets handler tests substitute a fake
// instead of wiring every leaf dependency (§4.4, §4.8).
type OrchestratorService interface {
	Submit(ctx context.Context, rawURL string) (string, error)

	// Cancel requests early termination of jobID if it is still running.
	// It reports false when jobID is unknown to the Orchestrator or has
	// already reached a terminal state; cancellation itself completes
	// asynchronously (§5 Cancellation).
	Cancel(jobID string) bool
}
