package interfaces

import "context"

// ArchiveProgress is one throttled progress observation from the Builder
// (§4.2).
type ArchiveProgress struct {
	EntriesWritten int
	BytesWritten   int64
	Percent        int
}

// ProgressSink receives throttled entry-count progress events; publish must
// be non-blocking from the Builder's perspective (§5).
type ProgressSink func(ArchiveProgress)

// ArchiveBuilder streams a directory tree into a single compressed archive
// (§4.2).
type ArchiveBuilder interface {
	// Build produces outputFile from sourceDir. On success outputFile
	// exists and is a valid archive; the caller checks it against the
	// minimum size floor.
	Build(ctx context.Context, sourceDir, outputFile string, sink ProgressSink) error
}
