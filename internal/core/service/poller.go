package service

import (
	"context"
	"sync"
	"time"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/infrastructure/metrics"
)

// PollHandle is a running poll loop started by JobService.Watch.
type PollHandle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	wakeCh   chan struct{}
	stopOnce sync.Once
}

// Stop cancels the loop, including any in-flight fetch, and waits for it to
// exit. It is idempotent. It must not be called from the update callback.
func (h *PollHandle) Stop() {
	h.stopOnce.Do(h.cancel)
	<-h.done
}

// Done is closed once the loop has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

func (h *PollHandle) wake() {
	select {
	case h.wakeCh <- struct{}{}:
	default:
	}
}

// Watch polls the job list immediately and then every PollInterval while at
// least one job is unfinished. Once every job is terminal the loop idles
// until an upload wakes it. onUpdate is called after every tick from the
// loop goroutine.
func (s *JobService) Watch(ctx context.Context, onUpdate func(ports.PollUpdate)) ports.Watch {
	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{
		cancel: cancel,
		done:   make(chan struct{}),
		wakeCh: make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.watches[h] = struct{}{}
	s.mu.Unlock()
	metrics.ActiveWatches.Inc()

	go s.poll(ctx, h, onUpdate)
	return h
}

func (s *JobService) poll(ctx context.Context, h *PollHandle, onUpdate func(ports.PollUpdate)) {
	defer close(h.done)
	defer metrics.ActiveWatches.Dec()
	defer func() {
		s.mu.Lock()
		delete(s.watches, h)
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var last []domain.Job
	// fresh makes the next tick judge termination on what it fetched, not
	// on the list from before: set for the first tick and after a wake.
	fresh := true
	for {
		update, ok := s.tick(ctx, &last, fresh)
		if !ok {
			return
		}
		fresh = false
		if onUpdate != nil {
			onUpdate(update)
		}

		if update.Idle {
			select {
			case <-ctx.Done():
				return
			case <-h.wakeCh:
				ticker.Reset(s.cfg.PollInterval)
				fresh = true
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-h.wakeCh:
			ticker.Reset(s.cfg.PollInterval)
			fresh = true
		}
	}
}

// tick runs one fetch and records it in last. It reports false when the loop
// context is done.
func (s *JobService) tick(ctx context.Context, last *[]domain.Job, fresh bool) (ports.PollUpdate, bool) {
	jobs, err := s.ListJobs(ctx)
	if ctx.Err() != nil {
		return ports.PollUpdate{}, false
	}
	if err != nil {
		metrics.PollTicksTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("poll jobs")
		return ports.PollUpdate{Jobs: s.Jobs(), Err: err}, true
	}

	basis := jobs
	if s.cfg.StaleTermination && !fresh {
		basis = *last
	}
	*last = jobs

	update := ports.PollUpdate{Jobs: jobs, Idle: domain.AllTerminal(basis)}
	switch {
	case domain.AnyFailed(jobs):
		update.Err = domain.ErrTranscriptionFailed
		metrics.PollTicksTotal.WithLabelValues("failed_job").Inc()
	case update.Idle:
		metrics.PollTicksTotal.WithLabelValues("terminal").Inc()
	default:
		metrics.PollTicksTotal.WithLabelValues("pending").Inc()
	}
	return update, true
}
