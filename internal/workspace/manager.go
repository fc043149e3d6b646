package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

// contentSubpath is the canonical steamcmd workshop output layout under
// an install directory: steamapps/workshop/content/<appId>/<itemId>.
const contentSubpath = "steamapps/workshop/content"

// Manager allocates and disposes per-job workspace directories under a
// configured root. Every job gets its own directory, so a hung download
// can never taint the next job's install location.
type Manager struct {
	root          string
	staleDeadline time.Duration
}

var _ interfaces.WorkspaceManager = (*Manager)(nil)

func New(root string, staleDeadline time.Duration) *Manager {
	return &Manager{root: root, staleDeadline: staleDeadline}
}

// Allocate returns the directory named by jobID under the workspace
// root, creating it if necessary; repeated calls for the same job return
// the same directory.
func (m *Manager) Allocate(jobID string) (string, error) {
	dir := filepath.Join(m.root, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("allocate workspace for %s: %w", jobID, err)
	}
	return dir, nil
}

// candidatePaths lists, in decreasing order of plausibility, the layouts
// the external tool has been observed to produce (§4.2/§4.3). The bare
// workspace root deliberately does not appear here: were it included as
// a last resort it would match on any non-empty workspace and archive
// unrelated steam metadata alongside the mod content (Design Notes open
// question, resolved against that fallback).
func candidatePaths(workspacePath, appID, itemID string) []string {
	return []string{
		filepath.Join(workspacePath, contentSubpath, appID, itemID),
		filepath.Join(workspacePath, "workshop", "content", appID, itemID),
		filepath.Join(workspacePath, contentSubpath, itemID),
	}
}

// FindContent tries the canonical steamcmd output layout, then a short
// list of fallback layouts of decreasing plausibility, and returns the
// first non-empty directory found. It reports the canonical path when
// nothing matches, so callers have a stable location to report as the
// failure cause.
func (m *Manager) FindContent(workspacePath, appID, itemID string) (string, bool) {
	candidates := candidatePaths(workspacePath, appID, itemID)
	for _, dir := range candidates {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) > 0 {
			return dir, true
		}
	}
	return candidates[0], false
}

// Dispose removes a job's workspace directory. A directory that does not
// exist is not an error, whatever force is: cleanup is idempotent (§4.3
// edge case). force only adds context to a removal error.
func (m *Manager) Dispose(workspacePath string, force bool) error {
	if workspacePath == "" || workspacePath == m.root {
		return fmt.Errorf("refusing to dispose workspace root itself")
	}
	if err := os.RemoveAll(workspacePath); err != nil {
		if force {
			return fmt.Errorf("force dispose %s: %w", workspacePath, err)
		}
		return err
	}
	return nil
}

// SweepAll removes workspace directories older than the stale deadline
// that were never disposed by their owning job, e.g. after a crash. It
// returns the count of directories removed.
func (m *Manager) SweepAll() (int, error) {
	cutoff := time.Now().Add(-m.staleDeadline)
	return m.sweep(func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
}

// SweepAllUnconditional removes every directory under the workspace root
// regardless of age. No job from a prior process can still be running, so
// nothing it left behind deserves the stale-deadline grace period that
// SweepAll gives an in-flight job (§4.3 edge case: process restart).
func (m *Manager) SweepAllUnconditional() (int, error) {
	return m.sweep(func(os.FileInfo) bool { return true })
}

func (m *Manager) sweep(shouldRemove func(os.FileInfo) bool) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read workspace root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !shouldRemove(info) {
			continue
		}
		path := filepath.Join(m.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			continue
		}
		removed++
	}

	return removed, nil
}
