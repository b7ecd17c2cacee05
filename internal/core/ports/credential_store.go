package ports

import "context"

// CredentialStore persists the bearer token across process restarts.
// An empty string means no credential is stored.
type CredentialStore interface {
	// Save stores token; Save(ctx, "") is equivalent to Clear.
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Pinger is implemented by stores that can report their own availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
