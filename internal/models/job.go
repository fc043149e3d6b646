package models

import "time"

// JobState is a node in the directed, no-back-edges state graph of §4.4.
type JobState string

const (
	JobStarting        JobState = "Starting"
	JobPreparing       JobState = "Preparing"
	JobDownloading     JobState = "Downloading"
	JobCreatingArchive JobState = "CreatingArchive"
	JobCompleted       JobState = "Completed"
	JobError           JobState = "Error"
	JobCleaned         JobState = "Cleaned"
)

// terminal reports whether a state has no outgoing transitions except
// Completed -> Cleaned, which is handled separately by CanTransition.
func (s JobState) terminal() bool {
	return s == JobError || s == JobCleaned
}

// Terminal reports whether a Job in state s can be forgotten: it will
// never transition again on its own. Completed counts as terminal here
// even though Completed -> Cleaned is a valid edge, because forgetting
// a Completed job is exactly how that edge is normally taken (§4.5
// Fetch, §6 Cleanup).
func (s JobState) Terminal() bool {
	return s == JobCompleted || s.terminal()
}

// nextStates enumerates the only states reachable directly from s (JI-3).
func (s JobState) nextStates() []JobState {
	switch s {
	case JobStarting:
		return []JobState{JobPreparing, JobError}
	case JobPreparing:
		return []JobState{JobDownloading, JobError}
	case JobDownloading:
		return []JobState{JobCreatingArchive, JobError}
	case JobCreatingArchive:
		return []JobState{JobCompleted, JobError}
	case JobCompleted:
		return []JobState{JobCleaned}
	default:
		return nil
	}
}

// CanTransition reports whether the state graph in §4.4 permits from->to.
func CanTransition(from, to JobState) bool {
	for _, s := range from.nextStates() {
		if s == to {
			return true
		}
	}
	return false
}

// Metadata is the scraped snapshot of the workshop item captured at Submit
// time and frozen onto the Job (§3).
type Metadata struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	PreviewImage   string `json:"previewImage"`
	DeclaredSize   int64  `json:"declaredSize"`
	ApplicationID  string `json:"applicationId"`
	Valid          bool   `json:"valid"`
}

// AttemptRecord is a short summary of one Adapter attempt, kept only for
// admin-visible history; it is not part of the durable state machine.
type AttemptRecord struct {
	Attempt   int       `json:"attempt"`
	Outcome   string    `json:"outcome"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Job is the unit of work described in §3. The Orchestrator is the single
// writer of State and Progress; every other component reads a Snapshot.
type Job struct {
	ID             string
	WorkshopItemID string
	State          JobState
	Progress       int
	WorkspacePath  string
	ArchivePath    string
	ArchiveSize    int64
	Metadata       Metadata
	StartedAt      time.Time
	FinishedAt     time.Time
	LastError      ErrorKind
	AttemptCount   int
	Attempts       []AttemptRecord
}

// Snapshot is an immutable copy of a Job's caller-visible fields (§4.5:
// "Status snapshots are immutable copies").
type Snapshot struct {
	ID             string    `json:"jobId"`
	WorkshopItemID string    `json:"itemId"`
	State          JobState  `json:"state"`
	Progress       int       `json:"progress"`
	ArchiveSize    int64     `json:"archiveSize,omitempty"`
	Metadata       Metadata  `json:"metadata"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt,omitempty"`
	LastError      ErrorKind `json:"lastError,omitempty"`
	AttemptCount   int       `json:"attemptCount"`
	DownloadURL    string    `json:"downloadUrl,omitempty"`
}

// ToSnapshot copies the caller-visible fields of a Job by value.
func (j *Job) ToSnapshot() Snapshot {
	return Snapshot{
		ID:             j.ID,
		WorkshopItemID: j.WorkshopItemID,
		State:          j.State,
		Progress:       j.Progress,
		ArchiveSize:    j.ArchiveSize,
		Metadata:       j.Metadata,
		StartedAt:      j.StartedAt,
		FinishedAt:     j.FinishedAt,
		LastError:      j.LastError,
		AttemptCount:   j.AttemptCount,
	}
}

// AdminHistoryEntry is the reduced projection published for the (out of
// scope) admin dashboard to persist and render (SPEC_FULL §3).
type AdminHistoryEntry struct {
	JobID       string        `json:"jobId"`
	ItemID      string        `json:"itemId"`
	Title       string        `json:"title"`
	State       JobState      `json:"state"`
	Duration    time.Duration `json:"durationNs"`
	ArchiveSize int64         `json:"archiveSize"`
}
