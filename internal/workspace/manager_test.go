package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateIsIdempotentPerJob(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	a, err := m.Allocate("job-1")
	require.NoError(t, err)
	b, err := m.Allocate("job-1")
	require.NoError(t, err)

	assert.Equal(t, a, b, "repeated allocation for the same job returns the same workspace")
	assert.DirExists(t, a)
	assert.DirExists(t, b)
}

func TestFindContentReportsPresence(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	ws, err := m.Allocate("job-2")
	require.NoError(t, err)

	_, found := m.FindContent(ws, "480", "123456")
	assert.False(t, found)

	contentDir := filepath.Join(ws, contentSubpath, "480", "123456")
	require.NoError(t, os.MkdirAll(contentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "mod.pbo"), []byte("x"), 0o644))

	path, found := m.FindContent(ws, "480", "123456")
	assert.True(t, found)
	assert.Equal(t, contentDir, path)
}

func TestFindContentFallsBackToNonCanonicalLayout(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	ws, err := m.Allocate("job-2b")
	require.NoError(t, err)

	// Some steamcmd builds omit the "steamapps" prefix entirely.
	contentDir := filepath.Join(ws, "workshop", "content", "480", "123456")
	require.NoError(t, os.MkdirAll(contentDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "mod.pbo"), []byte("x"), 0o644))

	path, found := m.FindContent(ws, "480", "123456")
	assert.True(t, found)
	assert.Equal(t, contentDir, path)
}

func TestFindContentNeverFallsBackToBareWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	ws, err := m.Allocate("job-2c")
	require.NoError(t, err)

	// Unrelated files directly under the workspace must never satisfy
	// FindContent; only the documented candidate layouts count.
	require.NoError(t, os.WriteFile(filepath.Join(ws, "steam_appid.txt"), []byte("480"), 0o644))

	_, found := m.FindContent(ws, "480", "123456")
	assert.False(t, found)
}

func TestDisposeIsIdempotent(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	ws, err := m.Allocate("job-3")
	require.NoError(t, err)

	require.NoError(t, m.Dispose(ws, false))
	require.NoError(t, m.Dispose(ws, false))
	assert.NoDirExists(t, ws)
}

func TestDisposeRefusesWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)
	assert.Error(t, m.Dispose(root, true))
}

func TestSweepAllRemovesStaleDirectoriesOnly(t *testing.T) {
	root := t.TempDir()
	m := New(root, 10*time.Millisecond)

	stale, err := m.Allocate("job-old")
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh, err := m.Allocate("job-new")
	require.NoError(t, err)

	removed, err := m.SweepAll()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}

func TestSweepAllUnconditionalRemovesEvenFreshDirectories(t *testing.T) {
	root := t.TempDir()
	m := New(root, time.Hour)

	a, err := m.Allocate("job-a")
	require.NoError(t, err)
	b, err := m.Allocate("job-b")
	require.NoError(t, err)

	removed, err := m.SweepAllUnconditional()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoDirExists(t, a)
	assert.NoDirExists(t, b)
}
