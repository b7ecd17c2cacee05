package ports

import (
	"context"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// TokenHolder swaps the bearer token attached to outgoing requests.
type TokenHolder interface {
	SetToken(token string)
}

// AuthGateway covers the unauthenticated and profile endpoints.
type AuthGateway interface {
	TokenHolder
	Register(ctx context.Context, username, password string) (*domain.UserProfile, error)
	Login(ctx context.Context, username, password string) (string, error)
	FetchProfile(ctx context.Context) (*domain.UserProfile, error)
}

// JobGateway covers the job endpoints of the authenticated user.
type JobGateway interface {
	UploadJob(ctx context.Context, file domain.UploadFile) (*domain.Job, error)
	ListJobs(ctx context.Context) ([]domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}
