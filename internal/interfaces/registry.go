package interfaces

import (
	"io"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

// ByteRange is a parsed single-range request (SPEC_FULL §4.5).
type ByteRange struct {
	Start, End int64 // inclusive, End == -1 means "to EOF"
}

// FetchResult carries everything the HTTP layer needs to serve one archive
// stream (§4.5, §6).
type FetchResult struct {
	Reader        io.ReadCloser
	Size          int64   // total archive size
	RangeStart    int64
	RangeEnd      int64   // inclusive
	Partial       bool
	ETag          string
}

// Registry holds Job records and resolves artifact delivery (§4.5).
type Registry interface {
	// Submit creates a new Job record in JobStarting state and returns its
	// id. Admission-cap enforcement happens before Submit is called.
	Submit(itemID string, metadata models.Metadata) string

	// Status returns an immutable snapshot, or ok == false if unknown.
	Status(jobID string) (models.Snapshot, bool)

	// Fetch serves the archive for a Completed job. rng == nil requests
	// the whole file.
	Fetch(jobID string, rng *ByteRange) (FetchResult, error)

	// Forget drops jobID from the table once it has reached a terminal
	// state (Completed, Error, or Cleaned). Returns false if jobID is
	// unknown or still in flight; callers cannot forget a running job.
	Forget(jobID string) bool

	// Job returns the live, mutable Job record for orchestrator-internal
	// use only; HTTP-facing code must use Status/Fetch instead.
	Job(jobID string) (*models.Job, bool)

	// Mutate applies fn to jobID's record under the registry's write lock,
	// so the Orchestrator's field writes never race a concurrent
	// Status/List snapshot read. Returns false if jobID is unknown.
	Mutate(jobID string, fn func(*models.Job)) bool

	// List returns a snapshot of every job currently tracked, most recent
	// first, for the admin-visible history endpoint.
	List() []models.Snapshot

	// MarkDelivered records a whole-file fetch and drops the Job record
	// after a delay (§4.5).
	MarkDelivered(jobID string)
}
