package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

func TestBuilderBuildProducesReadableZip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "root.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "leaf.txt"), []byte("world"), 0o644))

	out := filepath.Join(t.TempDir(), "out.zip")

	var lastProgress interfaces.ArchiveProgress
	b := New(nil)
	err := b.Build(context.Background(), src, out, func(p interfaces.ArchiveProgress) {
		lastProgress = p
	})
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Equal(t, 2, lastProgress.EntriesWritten)
	assert.Equal(t, 100, lastProgress.Percent)
}

func TestBuilderRespectsContextCancellation(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "out.zip")
	b := New(nil)
	err := b.Build(ctx, src, out, nil)
	assert.Error(t, err)
}
