package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"homeservices-agent/internal/domain"
)

// Storage keys holding the persisted identity and credential.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

var (
	// ErrPersist is returned when the in-memory transition succeeded but the
	// durable copy could not be written or removed.
	ErrPersist = errors.New("session not persisted")
	// ErrNotAuthenticated reports an operation that needs a complete session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// State is a snapshot of the session. The zero value is logged out.
type State struct {
	User  *domain.User
	Token string
}

// IsAuthenticated reports whether both the identity and the token are present.
func (s State) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

func (s State) clone() State {
	if s.User == nil {
		return s
	}
	u := *s.User
	return State{User: &u, Token: s.Token}
}

type kvRepo interface {
	Set(ctx context.Context, key, value string) error
	MultiSet(ctx context.Context, entries map[string]string) error
	MultiGet(ctx context.Context, keys []string) ([]*string, error)
	MultiRemove(ctx context.Context, keys []string) error
}

// Store is the single source of truth for who is logged in.
type Store struct {
	kv     kvRepo
	logger zerolog.Logger

	// writeMu orders auth transitions, including their storage I/O.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state State
}

// New creates a logged-out Store backed by kv.
func New(kv kvRepo, logger zerolog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// IsAuthenticated reports whether a complete session is loaded.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated()
}

// Login installs user and token together and persists both in one write.
func (s *Store) Login(ctx context.Context, user domain.User, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.commit(State{User: &user, Token: token})

	if err := s.kv.MultiSet(ctx, map[string]string{KeyUser: string(blob), KeyToken: token}); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("persist login failed")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// SetUser replaces the identity and persists it. It does not require a
// token, so the sign-in flow may call SetUser before SetToken.
func (s *Store) SetUser(ctx context.Context, user domain.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.setUserLocked(ctx, user)
}

// UpdateUser replaces the identity of a signed-in session, for example after a
// profile edit. It returns ErrNotAuthenticated when no complete session is
// loaded, checked under the same lock Logout takes.
func (s *Store) UpdateUser(ctx context.Context, user domain.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return s.setUserLocked(ctx, user)
}

func (s *Store) setUserLocked(ctx context.Context, user domain.User) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	s.state.User = &user
	s.mu.Unlock()

	if err := s.kv.Set(ctx, KeyUser, string(blob)); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("persist user failed")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// SetToken replaces the bearer token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state.Token = token
	s.mu.Unlock()

	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		s.logger.Warn().Err(err).Msg("persist token failed")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Logout removes the persisted keys, then clears the in-memory session. The
// in-memory session is cleared even when the removal fails.
func (s *Store) Logout(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.kv.MultiRemove(ctx, []string{KeyUser, KeyToken})
	s.commit(State{})
	if err != nil {
		s.logger.Error().Err(err).Msg("remove persisted session failed")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// LoadAuth restores a persisted session. It reports whether a session was
// restored; missing keys, unreadable storage and corrupt data all leave the
// current state untouched.
func (s *Store) LoadAuth(ctx context.Context) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	vals, err := s.kv.MultiGet(ctx, []string{KeyUser, KeyToken})
	if err != nil {
		s.logger.Error().Err(err).Msg("load auth failed")
		return false
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil || *vals[0] == "" || *vals[1] == "" {
		return false
	}

	var user domain.User
	if err := json.Unmarshal([]byte(*vals[0]), &user); err != nil {
		s.logger.Error().Err(err).Msg("load auth failed: corrupt user")
		return false
	}

	s.commit(State{User: &user, Token: *vals[1]})
	s.logger.Debug().Str("user_id", user.ID).Msg("session restored")
	return true
}

func (s *Store) commit(next State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}
