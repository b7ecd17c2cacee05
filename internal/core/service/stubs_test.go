package service

import (
	"context"
	"sync"

	"github.com/audio-transcribe/client/internal/core/domain"
)

type stubStore struct {
	mu      sync.Mutex
	token   string
	loadErr error
	saveErr error
	saves   int
	clears  int
}

func (s *stubStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.token = token
	return nil
}

func (s *stubStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return "", s.loadErr
	}
	return s.token, nil
}

func (s *stubStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.token = ""
	return nil
}

func (s *stubStore) stored() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// stubAuthGateway answers from the configured funcs and records calls.
type stubAuthGateway struct {
	mu       sync.Mutex
	token    string
	calls    int
	register func(username, password string) (*domain.UserProfile, error)
	login    func(ctx context.Context, username, password string) (string, error)
	profile  func(ctx context.Context, token string) (*domain.UserProfile, error)
}

func (g *stubAuthGateway) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

func (g *stubAuthGateway) activeToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

func (g *stubAuthGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *stubAuthGateway) Register(_ context.Context, username, password string) (*domain.UserProfile, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.register == nil {
		return &domain.UserProfile{Username: username}, nil
	}
	return g.register(username, password)
}

func (g *stubAuthGateway) Login(ctx context.Context, username, password string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.login(ctx, username, password)
}

func (g *stubAuthGateway) FetchProfile(ctx context.Context) (*domain.UserProfile, error) {
	g.mu.Lock()
	g.calls++
	token := g.token
	g.mu.Unlock()
	return g.profile(ctx, token)
}

// aliceGateway accepts alice/pw, issues abc123 and serves alice's profile for it.
func aliceGateway() *stubAuthGateway {
	return &stubAuthGateway{
		login: func(_ context.Context, username, password string) (string, error) {
			if username == "alice" && password == "pw" {
				return "abc123", nil
			}
			return "", domain.ErrUnauthorized
		},
		profile: func(_ context.Context, token string) (*domain.UserProfile, error) {
			if token != "abc123" {
				return nil, domain.ErrUnauthorized
			}
			return &domain.UserProfile{Username: "alice", Disabled: false}, nil
		},
	}
}

// stubJobGateway serves ListJobs from list and counts calls per operation.
type stubJobGateway struct {
	mu      sync.Mutex
	lists   int
	uploads int
	list    func(ctx context.Context, call int) ([]domain.Job, error)
	upload  func(file domain.UploadFile) (*domain.Job, error)
}

func (g *stubJobGateway) UploadJob(_ context.Context, file domain.UploadFile) (*domain.Job, error) {
	g.mu.Lock()
	g.uploads++
	g.mu.Unlock()
	if g.upload == nil {
		return &domain.Job{ID: "new", Filename: file.Name, Status: domain.JobStatusUploaded}, nil
	}
	return g.upload(file)
}

func (g *stubJobGateway) ListJobs(ctx context.Context) ([]domain.Job, error) {
	g.mu.Lock()
	g.lists++
	call := g.lists
	g.mu.Unlock()
	return g.list(ctx, call)
}

func (g *stubJobGateway) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	return &domain.Job{ID: jobID, Status: domain.JobStatusProcessing}, nil
}

func (g *stubJobGateway) listCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lists
}

func (g *stubJobGateway) uploadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uploads
}

type stubArchive struct {
	mu   sync.Mutex
	jobs []domain.Job
	err  error
}

func (a *stubArchive) Archive(_ context.Context, job domain.Job) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs = append(a.jobs, job)
	return a.err
}

func (a *stubArchive) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *stubArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}
