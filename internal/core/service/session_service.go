package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/audio-transcribe/client/internal/core/domain"
	"github.com/audio-transcribe/client/internal/core/ports"
	"github.com/audio-transcribe/client/internal/infrastructure/metrics"
)

const (
	loginFailedMessage     = "Unable to login"
	badCredentialsMessage  = "Incorrect username or password."
	RegisterFailedMessage  = "Unable to register right now."
	storeOperationDeadline = 5 * time.Second
)

type loginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// SessionService is the authentication state machine. Every transition that
// waits on the network takes a generation number; results carrying an older
// generation are discarded together with their persistence side effects.
type SessionService struct {
	store    ports.CredentialStore
	gateway  ports.AuthGateway
	validate *inputValidator
	log      zerolog.Logger

	mu      sync.Mutex
	state   domain.Session
	gen     uint64
	subs    map[int]func(domain.Session)
	nextSub int

	// persistMu serialises writes to the store and the gateway token so a
	// stale generation can never persist after a newer one cleared.
	persistMu sync.Mutex
}

func NewSessionService(store ports.CredentialStore, gateway ports.AuthGateway, log zerolog.Logger) *SessionService {
	return &SessionService{
		store:    store,
		gateway:  gateway,
		validate: newInputValidator(),
		log:      log,
		state:    domain.Session{Status: domain.SessionIdle},
		subs:     make(map[int]func(domain.Session)),
	}
}

// Login exchanges credentials for a token, persists it and loads the profile.
// It is refused with ErrSessionBusy while another transition is loading.
func (s *SessionService) Login(ctx context.Context, username, password string) error {
	if err := s.validate.Validate(loginInput{Username: username, Password: password}); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state.Status == domain.SessionLoading {
		s.mu.Unlock()
		return domain.ErrSessionBusy
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.commit(gen, func(st *domain.Session) {
		st.Status = domain.SessionLoading
		st.ErrorMessage = ""
	})

	token, err := s.gateway.Login(ctx, username, password)
	if err != nil {
		return s.failLogin(gen, err)
	}

	if err := s.activate(ctx, gen, token, true); err != nil {
		if errors.Is(err, domain.ErrSessionSuperseded) {
			return err
		}
		return s.failLogin(gen, err)
	}

	profile, err := s.gateway.FetchProfile(ctx)
	if err != nil {
		return s.failLogin(gen, err)
	}

	ok := s.commit(gen, func(st *domain.Session) {
		*st = domain.Session{User: profile, Token: token, Status: domain.SessionAuthenticated}
	})
	if !ok {
		return domain.ErrSessionSuperseded
	}
	s.log.Info().Str("username", profile.Username).Msg("logged in")
	return nil
}

func (s *SessionService) failLogin(gen uint64, err error) error {
	msg := loginMessage(err)
	s.deactivate(gen)

	ok := s.commit(gen, func(st *domain.Session) {
		*st = domain.Session{Status: domain.SessionError, ErrorMessage: msg}
	})
	if !ok {
		return domain.ErrSessionSuperseded
	}
	s.log.Warn().Err(err).Msg("login failed")
	return fmt.Errorf("login: %w", err)
}

func loginMessage(err error) string {
	if errors.Is(err, domain.ErrUnauthorized) {
		return badCredentialsMessage
	}
	return domain.Message(err, loginFailedMessage)
}

// Logout clears the credential and returns to idle. It never fails and is
// safe to call repeatedly; any in-flight transition is superseded.
func (s *SessionService) Logout() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.deactivate(gen)
	s.commit(gen, func(st *domain.Session) {
		*st = domain.Session{Status: domain.SessionIdle}
	})
}

// Hydrate restores the session from the stored token. A call while loading
// is a no-op. Every failure ends idle without an error message.
func (s *SessionService) Hydrate(ctx context.Context) {
	s.mu.Lock()
	if s.state.Status == domain.SessionLoading {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	token, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("credential store unreadable, starting signed out")
		token = ""
	}

	if token == "" {
		if s.activate(ctx, gen, "", false) == nil {
			s.commit(gen, func(st *domain.Session) {
				*st = domain.Session{Status: domain.SessionIdle}
			})
		}
		return
	}

	if s.activate(ctx, gen, token, false) != nil {
		return
	}
	s.commit(gen, func(st *domain.Session) {
		st.Token = token
		st.Status = domain.SessionLoading
		st.ErrorMessage = ""
	})

	profile, err := s.gateway.FetchProfile(ctx)
	if err != nil {
		s.log.Info().Err(err).Msg("stored credential rejected, signing out")
		s.deactivate(gen)
		s.commit(gen, func(st *domain.Session) {
			*st = domain.Session{Status: domain.SessionIdle}
		})
		return
	}

	s.commit(gen, func(st *domain.Session) {
		*st = domain.Session{User: profile, Token: token, Status: domain.SessionAuthenticated}
	})
}

// SetUser replaces the profile without touching status. Clearing it while
// authenticated is refused.
func (s *SessionService) SetUser(profile *domain.UserProfile) error {
	s.mu.Lock()
	if profile == nil && s.state.Status == domain.SessionAuthenticated {
		s.mu.Unlock()
		return domain.ErrProfileRequired
	}
	gen := s.gen
	s.mu.Unlock()

	var user *domain.UserProfile
	if profile != nil {
		p := *profile
		user = &p
	}
	if !s.commit(gen, func(st *domain.Session) { st.User = user }) {
		return domain.ErrSessionSuperseded
	}
	return nil
}

// RefreshProfile re-fetches the profile of the active session. An
// Unauthorized answer means the token expired, so the session is logged out.
func (s *SessionService) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	gen, token := s.gen, s.state.Token
	s.mu.Unlock()

	if token == "" {
		return fmt.Errorf("refresh profile: %w", domain.ErrUnauthorized)
	}

	profile, err := s.gateway.FetchProfile(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) && s.current(gen) {
			s.log.Info().Msg("token expired, logging out")
			s.Logout()
		}
		return fmt.Errorf("refresh profile: %w", err)
	}

	if !s.commit(gen, func(st *domain.Session) { st.User = profile }) {
		return domain.ErrSessionSuperseded
	}
	return nil
}

// Register creates an account. It does not sign in and leaves the session
// untouched.
func (s *SessionService) Register(ctx context.Context, in ports.RegisterInput) (*domain.UserProfile, error) {
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	profile, err := s.gateway.Register(ctx, in.Username, in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info().Str("username", profile.Username).Msg("registered")
	return profile, nil
}

// Snapshot returns a copy of the current session.
func (s *SessionService) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe calls fn with a copy of the session after every change. fn runs
// on the goroutine that made the change, outside the service lock.
func (s *SessionService) Subscribe(fn func(domain.Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *SessionService) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// commit applies mutate when gen is still current and notifies subscribers.
// It reports whether the change was applied.
func (s *SessionService) commit(gen uint64, mutate func(*domain.Session)) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	prev := s.state.Status
	mutate(&s.state)
	snap := s.state.Clone()
	subs := make([]func(domain.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if snap.Status != prev {
		metrics.SessionTransitionsTotal.WithLabelValues(string(snap.Status)).Inc()
		s.log.Debug().Str("from", string(prev)).Str("to", string(snap.Status)).Msg("session transition")
	}
	for _, fn := range subs {
		fn(snap)
	}
	return true
}

// activate points the gateway at token, and persists it first when persist
// is set, provided gen is still current. It returns ErrSessionSuperseded
// when a newer transition took over, or the store error when persisting
// failed; the gateway is left untouched in both cases.
func (s *SessionService) activate(ctx context.Context, gen uint64, token string, persist bool) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.current(gen) {
		return domain.ErrSessionSuperseded
	}
	if persist {
		if err := s.store.Save(ctx, token); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
	}
	s.gateway.SetToken(token)
	return nil
}

// deactivate drops the persisted and active token unless a newer transition
// owns them.
func (s *SessionService) deactivate(gen uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if !s.current(gen) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeOperationDeadline)
	defer cancel()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("clear credential")
	}
	s.gateway.SetToken("")
}
