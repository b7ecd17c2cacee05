package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/infrastructure/metrics"
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultMaxUploadBytes = 5 * 1024 * 1024

	missingFileMessage = "Please choose an audio file to upload."
)

// JobConfig tunes the upload limit and the poll loop.
type JobConfig struct {
	PollInterval time.Duration
	// StaleTermination decides idling on the list held before each fetch
	// instead of the fetched one, which costs one extra poll per run.
	StaleTermination bool
	MaxUploadBytes   int64
}

// JobService uploads audio and keeps the snapshot of the user's jobs.
type JobService struct {
	gateway ports.JobGateway
	archive ports.TranscriptArchive // nil disables archiving
	cfg     JobConfig
	log     zerolog.Logger

	mu       sync.Mutex
	jobs     []domain.Job
	archived map[string]struct{}
	watches  map[*PollHandle]struct{}
}

func NewJobService(gateway ports.JobGateway, archive ports.TranscriptArchive, cfg JobConfig, log zerolog.Logger) *JobService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &JobService{
		gateway:  gateway,
		archive:  archive,
		cfg:      cfg,
		log:      log,
		archived: make(map[string]struct{}),
		watches:  make(map[*PollHandle]struct{}),
	}
}

// Upload validates the file locally, then submits it. Oversized or missing
// files never reach the network. A successful upload wakes idle watches.
func (s *JobService) Upload(ctx context.Context, file domain.UploadFile) (*domain.Job, error) {
	if file.Name == "" || file.Content == nil {
		metrics.UploadsTotal.WithLabelValues("rejected_local").Inc()
		return nil, domain.NewValidationError(missingFileMessage)
	}
	if file.Size > s.cfg.MaxUploadBytes {
		metrics.UploadsTotal.WithLabelValues("rejected_local").Inc()
		return nil, domain.NewValidationError(fmt.Sprintf(
			"File is too large. Please select a file smaller than %s.", formatLimit(s.cfg.MaxUploadBytes)))
	}

	job, err := s.gateway.UploadJob(ctx, file)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("upload %s: %w", file.Name, err)
	}
	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	s.log.Info().Str("job_id", job.ID).Str("filename", job.Filename).Msg("audio uploaded")

	s.wakeWatches()
	return job, nil
}

// ListJobs fetches all jobs and replaces the snapshot. On error the snapshot
// is left as it was.
func (s *JobService) ListJobs(ctx context.Context) ([]domain.Job, error) {
	jobs, err := s.gateway.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	fresh := s.replace(jobs)
	s.archiveCompleted(ctx, fresh)
	return cloneJobs(jobs), nil
}

// GetJob fetches one job. The snapshot is not touched.
func (s *JobService) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if jobID == "" {
		return nil, domain.NewValidationError("Job id is required.")
	}
	job, err := s.gateway.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}

// Jobs returns a copy of the current snapshot.
func (s *JobService) Jobs() []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneJobs(s.jobs)
}

// replace swaps the snapshot and returns completed jobs not yet archived.
// They are marked archived only once the archive accepted them.
func (s *JobService) replace(jobs []domain.Job) []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = cloneJobs(jobs)
	if s.archive == nil {
		return nil
	}

	var fresh []domain.Job
	for _, j := range jobs {
		if j.Status != domain.JobStatusCompleted {
			continue
		}
		if _, seen := s.archived[j.ID]; seen {
			continue
		}
		fresh = append(fresh, j)
	}
	return fresh
}

func (s *JobService) archiveCompleted(ctx context.Context, jobs []domain.Job) {
	for _, j := range jobs {
		if err := s.archive.Archive(ctx, j); err != nil {
			s.log.Error().Err(err).Str("job_id", j.ID).Msg("archive transcript")
			continue
		}
		s.mu.Lock()
		s.archived[j.ID] = struct{}{}
		s.mu.Unlock()
	}
}

func (s *JobService) wakeWatches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h := range s.watches {
		h.wake()
	}
}

func cloneJobs(jobs []domain.Job) []domain.Job {
	if jobs == nil {
		return nil
	}
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	return out
}

func formatLimit(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	if n%1024 == 0 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}
