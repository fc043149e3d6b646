package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/94faddy/dz-wrokshop/internal/interfaces"
)

// unusualRatioMinInput is the input-size floor below which a low output
// ratio isn't unusual enough to be worth a warning (§4.2).
const unusualRatioMinInput = 10 * 1024

// unusualRatioThreshold flags an archive whose output is implausibly small
// next to its input, e.g. a mostly-empty content directory (§4.2).
const unusualRatioThreshold = 0.01

// Builder walks a workspace directory and produces a single deflate zip,
// reporting throttled progress so a slow archive step does not flood the
// Log Bus with per-file events (§4.2).
type Builder struct {
	progressEvery time.Duration
	log           arbor.ILogger
}

var _ interfaces.ArchiveBuilder = (*Builder)(nil)

// New returns a Builder that emits at most one progress update per
// interval regardless of how many files are written in between.
func New(log arbor.ILogger) *Builder {
	return &Builder{progressEvery: 250 * time.Millisecond, log: log}
}

// Build zips every regular file under sourceDir into outputFile,
// preserving relative paths as archive entry names. It does not check the
// minimum-size floor; the Orchestrator stats the finished file and
// classifies an undersized one as ErrArchiveTooSmall (§7).
func (b *Builder) Build(ctx context.Context, sourceDir, outputFile string, sink interfaces.ProgressSink) error {
	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("prepare archive directory: %w", err)
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	// Route deflate through klauspost/compress at BestSpeed for this
	// writer; archive/zip already registers a global Deflate compressor,
	// so the override is made per writer.
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestSpeed)
	})

	var files []string
	var totalSize int64
	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, path)
		totalSize += info.Size()
		return nil
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("walk workspace: %w", err)
	}

	limiter := rate.NewLimiter(rate.Every(b.progressEvery), 1)
	var written int64

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		if err := copyIntoArchive(zw, path, filepath.ToSlash(rel)); err != nil {
			_ = zw.Close()
			return fmt.Errorf("add %s: %w", rel, err)
		}

		info, statErr := os.Stat(path)
		if statErr == nil {
			written += info.Size()
		}

		if sink != nil && (limiter.Allow() || i == len(files)-1) {
			percent := 0
			if totalSize > 0 {
				percent = int(written * 100 / totalSize)
			}
			sink(interfaces.ArchiveProgress{
				EntriesWritten: i + 1,
				BytesWritten:   written,
				Percent:        percent,
			})
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	if b.log != nil && totalSize > unusualRatioMinInput {
		if outInfo, statErr := os.Stat(outputFile); statErr == nil {
			if ratio := float64(outInfo.Size()) / float64(totalSize); ratio < unusualRatioThreshold {
				b.log.Warn().
					Int("inputBytes", int(totalSize)).
					Int("outputBytes", int(outInfo.Size())).
					Msg("archive compression ratio is unusually low")
			}
		}
	}

	return nil
}

func copyIntoArchive(zw *zip.Writer, srcPath, entryName string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   entryName,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}

	_, err = io.Copy(w, src)
	return err
}
