package domain

// CredentialKey is the fixed key the bearer token is persisted under,
// scoped by API origin.
const CredentialKey = "audio-transcribe.accessToken"

// SessionStatus represents the lifecycle state of the client session.
type SessionStatus string

const (
	SessionIdle          SessionStatus = "idle"
	SessionLoading       SessionStatus = "loading"
	SessionAuthenticated SessionStatus = "authenticated"
	SessionError         SessionStatus = "error"
)

// UserProfile mirrors the server's view of the signed-in user.
// It is informational only; the server enforces Disabled.
type UserProfile struct {
	Username string `json:"username"`
	Disabled bool   `json:"disabled"`
}

// Session is the single process-wide authentication state.
//
// Status is authenticated iff both User and Token are set, and an error
// status always has an empty Token.
type Session struct {
	User         *UserProfile  `json:"user"`
	Token        string        `json:"-"`
	Status       SessionStatus `json:"status"`
	ErrorMessage string        `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (s Session) Clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Authenticated reports whether the session holds a usable user and token.
func (s Session) Authenticated() bool {
	return s.Status == SessionAuthenticated && s.User != nil && s.Token != ""
}
