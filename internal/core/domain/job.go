package domain

import "io"

// JobStatus is the server-controlled lifecycle state of a transcription job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusUploaded   JobStatus = "uploaded"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is a read-only copy of a server job record. It is never mutated
// locally; a newer copy replaces it on the next fetch.
type Job struct {
	ID           string    `json:"job_id" yaml:"job_id"`
	Filename     string    `json:"filename" yaml:"filename"`
	Status       JobStatus `json:"status" yaml:"status"`
	Transcript   string    `json:"transcript,omitempty" yaml:"transcript,omitempty"` // completed jobs only
	Owner        string    `json:"owner,omitempty" yaml:"owner,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
}

// AllTerminal reports whether every job in the list reached a terminal state.
// An empty list is considered terminal.
func AllTerminal(jobs []Job) bool {
	for _, j := range jobs {
		if !j.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// AnyFailed reports whether at least one job failed.
func AnyFailed(jobs []Job) bool {
	for _, j := range jobs {
		if j.Status == JobStatusFailed {
			return true
		}
	}
	return false
}

// UploadFile is an audio file selected for upload.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}
