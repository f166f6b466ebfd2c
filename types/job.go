package types

import "time"

// JobStatus is the engine-neutral state of a remote analysis job.
type JobStatus string

const (
	JobSubmitted  JobStatus = "SUBMITTED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCancelled  JobStatus = "CANCELLED"
	JobExpired    JobStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition can happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobExpired:
		return true
	}
	return false
}

// IsFailure reports a terminal state other than COMPLETED.
func (s JobStatus) IsFailure() bool {
	return s.IsTerminal() && s != JobCompleted
}

// Job is the ephemeral handle of one remote analysis run. It is never persisted.
type Job struct {
	ID        string
	SessionID string
	Status    JobStatus
	CreatedAt time.Time
}

// JobHandle is what submission hands to the poller.
type JobHandle struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
}

// Message authors
const (
	AuthorUser      = "user"
	AuthorAssistant = "assistant"
)

// ContentSegment is one typed piece of a message body.
type ContentSegment struct {
	Type string
	Text string
}

const SegmentText = "text"

// Message is one entry of a session transcript.
type Message struct {
	ID      string
	Author  string
	Content []ContentSegment
}

// DocumentRef points at a file already held in durable storage.
type DocumentRef struct {
	Path string
	Name string
}

// Profile is the analysis a document is submitted for.
type Profile struct {
	Name         string
	Instructions string
	// Rulebook is optional domain guidance appended to the request.
	Rulebook string
}
