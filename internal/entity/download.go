package entity

const (
	JobStateQueued JobState = iota
	JobStateActive
	JobStateDone
	JobStateCancelled
	JobStateFailed
)

type JobState int

func (s JobState) String() string {
	return [...]string{"queued", "active", "done", "cancelled", "failed"}[s]
}

// IsFinished reports whether the job reached a terminal state.
func (s JobState) IsFinished() bool {
	return s == JobStateDone || s == JobStateCancelled || s == JobStateFailed
}

// DownloadJob is one queued transfer. Its lifecycle is bounded by a single
// download session; a failed or cancelled job must be re-enqueued to retry.
type DownloadJob struct {
	ID    string // Unique job identifier
	Index int    // Position in enqueue order, reported to the progress sink
	URL   string
	State JobState
}
