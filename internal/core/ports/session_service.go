package ports

import (
	"context"

	"github.com/audio-transcribe/client/internal/core/domain"
)

// RegisterInput carries the sign-up form.
type RegisterInput struct {
	Username        string `validate:"required"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

// SessionService owns the process-wide authentication state.
type SessionService interface {
	Login(ctx context.Context, username, password string) error
	Logout()
	Hydrate(ctx context.Context)
	SetUser(profile *domain.UserProfile) error
	RefreshProfile(ctx context.Context) error
	Register(ctx context.Context, in RegisterInput) (*domain.UserProfile, error)

	Snapshot() domain.Session
	// Subscribe registers fn for every state change and returns a func that
	// removes it.
	Subscribe(fn func(domain.Session)) (unsubscribe func())
}
