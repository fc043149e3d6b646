package interfaces

// WorkspaceManager allocates, locates, and disposes of per-job scratch
// space (§4.3).
type WorkspaceManager interface {
	// Allocate returns the workspace path for jobID, creating it if
	// necessary. Idempotent per jobID.
	Allocate(jobID string) (string, error)

	// FindContent implements the canonical-then-fallback search described
	// in §4.2/§4.3. Returns ("", false) if nothing non-empty was found.
	FindContent(workspacePath, appID, itemID string) (string, bool)

	// Dispose removes the tree rooted at workspacePath. A missing tree is
	// not an error; force only changes how a removal error is wrapped.
	Dispose(workspacePath string, force bool) error

	// SweepAll disposes workspace directories under the configured root
	// that are older than the configured stale deadline, e.g. left behind
	// by a crashed job. Called periodically by the Sweeper (§4.3).
	SweepAll() (int, error)

	// SweepAllUnconditional disposes every workspace directory under the
	// configured root regardless of age. Called once at process startup,
	// since no job from a previous process can still be running (§4.3:
	// "startup sweeps all pre-existing workspaces unconditionally").
	SweepAllUnconditional() (int, error)
}
