package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"homeservices-agent/internal/domain"
	"homeservices-agent/internal/repository/kv"
)

// stubKV wraps a memory repository and can fail or block selected calls.
type stubKV struct {
	kv.Repository
	setErr        error
	multiSetErr   error
	multiGetErr   error
	removeErr     error
	removeGate    chan struct{}
	removeEntered chan struct{}
	multiGets     atomic.Int32
}

func newStubKV() *stubKV {
	return &stubKV{Repository: kv.NewMemory()}
}

func (s *stubKV) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.Repository.Set(ctx, key, value)
}

func (s *stubKV) MultiSet(ctx context.Context, entries map[string]string) error {
	if s.multiSetErr != nil {
		return s.multiSetErr
	}
	return s.Repository.MultiSet(ctx, entries)
}

func (s *stubKV) MultiGet(ctx context.Context, keys []string) ([]*string, error) {
	s.multiGets.Add(1)
	if s.multiGetErr != nil {
		return nil, s.multiGetErr
	}
	return s.Repository.MultiGet(ctx, keys)
}

func (s *stubKV) MultiRemove(ctx context.Context, keys []string) error {
	if s.removeEntered != nil {
		close(s.removeEntered)
	}
	if s.removeGate != nil {
		<-s.removeGate
	}
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.Repository.MultiRemove(ctx, keys)
}

func testUser() domain.User {
	return domain.User{
		ID:                "u1",
		Name:              "User 3210",
		Phone:             "9876543210",
		PreferredLanguage: "English",
		WalletBalance:     1000,
	}
}

func TestLoadAuthWithNothingPersisted(t *testing.T) {
	store := New(newStubKV(), zerolog.Nop())
	if store.LoadAuth(context.Background()) {
		t.Fatalf("expected nothing to restore")
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected logged out")
	}
	if st := store.State(); st.User != nil || st.Token != "" {
		t.Fatalf("expected zero state, got %+v", st)
	}
}

func TestLoginSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.Login(ctx, testUser(), "mock_token_u1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("expected authenticated after login")
	}

	restarted := New(repo, zerolog.Nop())
	if !restarted.LoadAuth(ctx) {
		t.Fatalf("expected session to be restored")
	}
	st := restarted.State()
	if !st.IsAuthenticated() || st.Token != "mock_token_u1" || *st.User != testUser() {
		t.Fatalf("unexpected restored state %+v", st)
	}
}

func TestSetUserAndSetTokenSurviveRestart(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.SetUser(ctx, testUser()); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatalf("identity without token must not count as authenticated")
	}
	if err := store.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	restarted := New(repo, zerolog.Nop())
	if !restarted.LoadAuth(ctx) {
		t.Fatalf("expected session to be restored")
	}
	st := restarted.State()
	if st.Token != "tok" || st.User.ID != "u1" || !st.IsAuthenticated() {
		t.Fatalf("unexpected restored state %+v", st)
	}
}

func TestSetUserReplacesIdentity(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	updated := testUser()
	updated.Name = "Asha"
	updated.PreferredLanguage = "Hindi"
	if err := store.SetUser(ctx, updated); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	restarted := New(repo, zerolog.Nop())
	restarted.LoadAuth(ctx)
	if got := restarted.State().User; got == nil || got.Name != "Asha" || got.PreferredLanguage != "Hindi" {
		t.Fatalf("expected updated identity, got %+v", got)
	}
}

func TestUpdateUserRequiresSession(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.UpdateUser(ctx, testUser()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, ok, _ := repo.Get(ctx, KeyUser); ok {
		t.Fatalf("rejected update must not persist a user")
	}

	if err := store.Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	updated := testUser()
	updated.Name = "Asha"
	if err := store.UpdateUser(ctx, updated); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if got := store.State().User.Name; got != "Asha" {
		t.Fatalf("expected updated name, got %q", got)
	}
}

func TestUpdateUserAfterInFlightLogout(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	repo.removeGate = make(chan struct{})
	repo.removeEntered = make(chan struct{})

	logoutDone := make(chan error, 1)
	go func() { logoutDone <- store.Logout(ctx) }()
	<-repo.removeEntered

	updateDone := make(chan error, 1)
	go func() { updateDone <- store.UpdateUser(ctx, testUser()) }()

	time.Sleep(20 * time.Millisecond)
	close(repo.removeGate)
	if err := <-logoutDone; err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := <-updateDone; !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, ok, _ := repo.Get(ctx, KeyUser); ok {
		t.Fatalf("user persisted without a token after logout")
	}
}

func TestLogoutRemovesPersistedKeys(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	if err := New(repo, zerolog.Nop()).Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	store := New(repo, zerolog.Nop())
	if !store.LoadAuth(ctx) {
		t.Fatalf("expected session to be restored")
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected logged out after Logout")
	}

	fresh := New(repo, zerolog.Nop())
	if fresh.LoadAuth(ctx) || fresh.IsAuthenticated() {
		t.Fatalf("expected durable keys to be gone")
	}
}

func TestLoadAuthRequiresBothKeys(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	if err := repo.Set(ctx, KeyToken, "tok"); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	store := New(repo, zerolog.Nop())
	if store.LoadAuth(ctx) || store.IsAuthenticated() {
		t.Fatalf("token alone must not restore a session")
	}
}

func TestLoadAuthCorruptUser(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	if err := repo.Repository.MultiSet(ctx, map[string]string{KeyUser: "{not json", KeyToken: "tok"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := New(repo, zerolog.Nop())
	if store.LoadAuth(ctx) || store.IsAuthenticated() {
		t.Fatalf("corrupt identity must degrade to logged out")
	}
}

func TestLoadAuthStorageUnavailable(t *testing.T) {
	repo := newStubKV()
	repo.multiGetErr = errors.New("storage unavailable")
	store := New(repo, zerolog.Nop())
	if store.LoadAuth(context.Background()) || store.IsAuthenticated() {
		t.Fatalf("unreadable storage must degrade to logged out")
	}
}

func TestLoginPersistFailure(t *testing.T) {
	repo := newStubKV()
	repo.multiSetErr = errors.New("disk full")
	store := New(repo, zerolog.Nop())

	err := store.Login(context.Background(), testUser(), "tok")
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("in-memory session should still be installed")
	}
}

func TestSetTokenPersistFailure(t *testing.T) {
	repo := newStubKV()
	repo.setErr = errors.New("disk full")
	store := New(repo, zerolog.Nop())
	if err := store.SetToken(context.Background(), "tok"); !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if store.State().Token != "tok" {
		t.Fatalf("expected token in memory")
	}
}

func TestLogoutRemoveFailureStillClearsMemory(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	repo.removeErr = errors.New("storage unavailable")

	if err := store.Logout(ctx); !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected logged out in memory")
	}
}

func TestStateReturnsCopy(t *testing.T) {
	store := New(newStubKV(), zerolog.Nop())
	if err := store.Login(context.Background(), testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	st := store.State()
	st.User.Name = "changed"
	if store.State().User.Name != testUser().Name {
		t.Fatalf("state leaked through snapshot")
	}
}

func TestLoadAuthWaitsForInFlightLogout(t *testing.T) {
	ctx := context.Background()
	repo := newStubKV()
	store := New(repo, zerolog.Nop())
	if err := store.Login(ctx, testUser(), "tok"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	repo.removeGate = make(chan struct{})
	repo.removeEntered = make(chan struct{})
	repo.multiGets.Store(0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := store.Logout(ctx); err != nil {
			t.Errorf("Logout: %v", err)
		}
	}()
	<-repo.removeEntered

	restored := make(chan bool, 1)
	go func() {
		defer wg.Done()
		restored <- store.LoadAuth(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	if n := repo.multiGets.Load(); n != 0 {
		t.Fatalf("LoadAuth read storage while Logout was in flight (%d reads)", n)
	}
	close(repo.removeGate)
	wg.Wait()

	if <-restored {
		t.Fatalf("LoadAuth restored a session that Logout removed")
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected logged out once both calls returned")
	}
}
