package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/core/service"
	"github.com/audio-transcribe/client/internal/infrastructure/credential"
	mongodb "github.com/audio-transcribe/client/internal/infrastructure/db/mongo"
	redisdb "github.com/audio-transcribe/client/internal/infrastructure/db/redis"
	"github.com/audio-transcribe/client/internal/infrastructure/gateway"
	"github.com/audio-transcribe/client/internal/infrastructure/queue"
	"github.com/audio-transcribe/client/internal/pkg/config"
	"github.com/audio-transcribe/client/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// app holds the wired services of one CLI invocation.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    ports.CredentialStore
	pingers  map[string]ports.Pinger
	sessions *service.SessionService
	jobs     *service.JobService

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     logger.Component("app"),
		pingers: make(map[string]ports.Pinger),
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store
	if p, ok := store.(ports.Pinger); ok {
		a.pingers["credential_store"] = p
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, nil, logger.Component("gateway"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sessions = service.NewSessionService(store, gw, logger.Component("session"))
	a.jobs = service.NewJobService(gw, a.openArchive(ctx), service.JobConfig{
		PollInterval:     cfg.Jobs.PollInterval,
		StaleTermination: cfg.Jobs.StaleTermination,
		MaxUploadBytes:   cfg.Jobs.MaxUploadBytes,
	}, logger.Component("jobs"))

	return a, nil
}

func (a *app) openStore(ctx context.Context) (ports.CredentialStore, error) {
	origin := a.cfg.Origin()

	switch a.cfg.Store.Backend {
	case config.StoreRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("credential store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return redisdb.NewTokenStore(client, origin), nil

	default:
		var sealer *credential.Sealer
		if a.cfg.Store.Secret != "" {
			s, err := credential.NewSealer(a.cfg.Store.Secret, origin)
			if err != nil {
				return nil, fmt.Errorf("credential store: %w", err)
			}
			sealer = s
		}
		return credential.NewFileStore(a.cfg.Store.Path, origin, sealer, logger.Component("credential")), nil
	}
}

// openArchive connects the optional transcript archive. An unreachable
// archive is logged and skipped; it never blocks the workflow.
func (a *app) openArchive(ctx context.Context) ports.TranscriptArchive {
	if a.cfg.Archive.MongoURI == "" {
		return nil
	}

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: a.cfg.Archive.MongoURI, Database: a.cfg.Archive.Database})
	if err != nil {
		a.log.Warn().Err(err).Msg("transcript archive unavailable")
		return nil
	}
	repo := mongodb.NewTranscriptRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		a.log.Warn().Err(err).Msg("transcript archive indexes")
	}
	a.pingers["archive"] = mongodb.Pinger{Client: client}

	queueCtx, cancel := context.WithCancel(context.Background())
	q := queue.NewArchiveQueue(0, repo, logger.Component("archive"))
	q.Start(queueCtx)

	a.closers = append(a.closers, func() {
		cancel()
		q.Wait()
		ctx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		_ = client.Disconnect(ctx)
	})
	return q
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// logOutput keeps logs off the terminal while the dashboard owns it by
// writing them next to the credential store instead.
func logOutput(cfg *config.Config, command string, args []string, stderr io.Writer) (io.Writer, func()) {
	if command != "watch" || slices.Contains(args, "-plain") || slices.Contains(args, "--plain") {
		return stderr, func() {}
	}

	path := filepath.Join(filepath.Dir(cfg.Store.Path), "transcribe.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}
