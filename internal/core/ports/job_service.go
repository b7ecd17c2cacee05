package ports

import (
	"context"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// PollUpdate is delivered to a watcher after every poll tick.
type PollUpdate struct {
	Jobs []domain.Job
	// Err is the fetch error, or domain.ErrTranscriptionFailed when a job in
	// Jobs failed.
	Err error
	// Idle is true when every job is terminal and the loop is waiting for a
	// new upload.
	Idle bool
}

// Watch is a running poll loop. Stop must be called on teardown.
type Watch interface {
	Stop()
}

// JobService uploads audio and tracks job completion.
type JobService interface {
	Upload(ctx context.Context, file domain.UploadFile) (*domain.Job, error)
	ListJobs(ctx context.Context) ([]domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	Jobs() []domain.Job
	Watch(ctx context.Context, onUpdate func(PollUpdate)) Watch
}

// TranscriptArchive records completed transcripts outside the service.
type TranscriptArchive interface {
	Archive(ctx context.Context, job domain.Job) error
}
