package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
)

type recordingSink struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (s *recordingSink) Archive(_ context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job.ID)
	return s.err
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.jobs...)
}

func TestArchiveQueue_DeliversAll(t *testing.T) {
	sink := &recordingSink{}
	q := NewArchiveQueue(3, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		if err := q.Archive(ctx, domain.Job{ID: id, Status: domain.JobStatusCompleted}); err != nil {
			t.Fatalf("Archive(%s): %v", id, err)
		}
	}
	cancel()
	q.Wait()

	if got := sink.ids(); len(got) != 5 {
		t.Fatalf("expected 5 archived jobs, got %v", got)
	}
}

func TestArchiveQueue_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &recordingSink{err: errors.New("mongo down")}
	q := NewArchiveQueue(1, sink, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	_ = q.Archive(ctx, domain.Job{ID: "1"})
	_ = q.Archive(ctx, domain.Job{ID: "2"})

	deadline := time.Now().Add(2 * time.Second)
	for len(sink.ids()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("worker stopped after a sink error")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	q.Wait()
}

func TestArchiveQueue_ShardIsStable(t *testing.T) {
	q := NewArchiveQueue(4, &recordingSink{}, zerolog.Nop())
	for _, id := range []string{"a", "b", "0d6c2f3e-job"} {
		first := q.shardIndex(id)
		if first < 0 || first >= 4 {
			t.Fatalf("shard %d out of range", first)
		}
		for i := 0; i < 10; i++ {
			if q.shardIndex(id) != first {
				t.Fatalf("shard for %q changed", id)
			}
		}
	}
}

func TestArchiveQueue_EnqueueHonoursContext(t *testing.T) {
	// Not started and buffer of one shard filled: the next enqueue must give up
	// when its context ends.
	q := NewArchiveQueue(1, &recordingSink{}, zerolog.Nop())
	for i := 0; i < channelBuffer; i++ {
		if err := q.Archive(context.Background(), domain.Job{ID: "x"}); err != nil {
			t.Fatalf("fill: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Archive(ctx, domain.Job{ID: "y"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
