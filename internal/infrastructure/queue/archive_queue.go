package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
)

const (
	defaultWorkers = 2
	channelBuffer  = 64
)

// ArchiveQueue hands completed jobs to a small set of workers so a slow
// archive never delays the poll loop. Jobs are sharded by id, so writes for
// the same job stay ordered.
type ArchiveQueue struct {
	workers []chan domain.Job
	sink    ports.TranscriptArchive
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewArchiveQueue creates a queue with numWorkers sharded workers writing to
// sink. If numWorkers <= 0, defaultWorkers is used.
func NewArchiveQueue(numWorkers int, sink ports.TranscriptArchive, log zerolog.Logger) *ArchiveQueue {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	q := &ArchiveQueue{
		workers: make([]chan domain.Job, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range q.workers {
		q.workers[i] = make(chan domain.Job, channelBuffer)
	}
	return q
}

// Start launches the workers. They drain their queue and exit once ctx is
// cancelled.
func (q *ArchiveQueue) Start(ctx context.Context) {
	for i, ch := range q.workers {
		q.wg.Add(1)
		go q.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has exited.
func (q *ArchiveQueue) Wait() {
	q.wg.Wait()
}

// Archive enqueues job for its shard. It blocks while the shard is full and
// fails only when ctx ends first.
func (q *ArchiveQueue) Archive(ctx context.Context, job domain.Job) error {
	select {
	case q.workers[q.shardIndex(job.ID)] <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue job %s: %w", job.ID, ctx.Err())
	}
}

// shardIndex maps a job id deterministically to a worker index.
func (q *ArchiveQueue) shardIndex(jobID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(jobID))
	return int(h.Sum32() % uint32(len(q.workers)))
}

func (q *ArchiveQueue) runWorker(ctx context.Context, id int, ch <-chan domain.Job) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			q.drain(id, ch)
			return
		case job := <-ch:
			q.write(ctx, id, job)
		}
	}
}

// drain writes whatever is still buffered with a fresh context.
func (q *ArchiveQueue) drain(id int, ch <-chan domain.Job) {
	for {
		select {
		case job := <-ch:
			q.write(context.Background(), id, job)
		default:
			return
		}
	}
}

func (q *ArchiveQueue) write(ctx context.Context, id int, job domain.Job) {
	if err := q.sink.Archive(ctx, job); err != nil {
		q.log.Error().Err(err).
			Str("job_id", job.ID).
			Int("worker_id", id).
			Msg("transcript archive failed")
		return
	}
	q.log.Debug().Str("job_id", job.ID).Int("worker_id", id).Msg("transcript archived")
}
