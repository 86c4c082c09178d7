package authclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-portal/internal/authz"
	"delivery-portal/internal/event"
	"delivery-portal/internal/model"
)

type stubAuth struct {
	mu         sync.Mutex
	stored     *model.User
	valid      bool
	loginErr   error
	loginGate  chan struct{}
	cleared    int
	loggedOut  int
	registered []string
}

func (s *stubAuth) Login(_ context.Context, email string, _ string) (*model.LoginResponse, error) {
	if s.loginGate != nil {
		<-s.loginGate
	}
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &model.LoginResponse{
		User:        model.User{ID: "user-1", Email: email, Role: authz.RoleRider},
		AccessToken: "token",
	}, nil
}

func (s *stubAuth) RegisterCustomer(_ context.Context, req model.RegisterCustomerRequest) (*model.User, error) {
	s.mu.Lock()
	s.registered = append(s.registered, req.Email)
	s.mu.Unlock()
	return &model.User{ID: "user-2", Email: req.Email, Role: authz.RoleCustomer}, nil
}

func (s *stubAuth) RegisterRider(_ context.Context, req model.RegisterRiderRequest) (*model.User, error) {
	return nil, errors.New("rider registration closed")
}

func (s *stubAuth) Logout(context.Context) {
	s.mu.Lock()
	s.loggedOut++
	s.mu.Unlock()
}

func (s *stubAuth) ValidateToken(context.Context) bool { return s.valid }

func (s *stubAuth) StoredUser(context.Context) (*model.User, bool) {
	return s.stored, s.stored != nil
}

func (s *stubAuth) ClearCredentials(context.Context) {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
}

func newStubSession(auth *stubAuth) (*Session, *RecordingNavigator, <-chan event.Event) {
	nav := &RecordingNavigator{}
	bus := event.NewBus()
	events, _ := bus.Subscribe()
	return NewSession(auth, nav, bus, "/signin"), nav, events
}

func TestSessionStartsInitializing(t *testing.T) {
	session, _, _ := newStubSession(&stubAuth{})

	snapshot := session.Snapshot()
	assert.Equal(t, StateInitializing, snapshot.State)
	assert.True(t, snapshot.Loading)
	assert.False(t, snapshot.IsAuthenticated())
}

func TestSessionInit(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		auth := &stubAuth{}
		session, _, events := newStubSession(auth)

		snapshot := session.Init(context.Background())
		assert.Equal(t, StateAnonymous, snapshot.State)
		assert.False(t, snapshot.Loading)
		assert.Equal(t, 1, auth.cleared)
		assert.Equal(t, event.TypeSessionCleared, (<-events).Type)
	})

	t.Run("stored and valid", func(t *testing.T) {
		auth := &stubAuth{stored: &model.User{ID: "user-1", Role: authz.RoleCustomer}, valid: true}
		session, _, events := newStubSession(auth)

		snapshot := session.Init(context.Background())
		assert.Equal(t, StateAuthenticated, snapshot.State)
		require.NotNil(t, snapshot.User)
		assert.Equal(t, "user-1", snapshot.User.ID)
		assert.Zero(t, auth.cleared)
		got := <-events
		assert.Equal(t, event.TypeSessionRestored, got.Type)
		assert.Equal(t, "user-1", got.ActorID)
	})

	t.Run("stored but rejected", func(t *testing.T) {
		auth := &stubAuth{stored: &model.User{ID: "user-1"}}
		session, _, _ := newStubSession(auth)

		snapshot := session.Init(context.Background())
		assert.Equal(t, StateAnonymous, snapshot.State)
		assert.Nil(t, snapshot.User)
		assert.Equal(t, 1, auth.cleared)
	})
}

func TestSessionSignIn(t *testing.T) {
	auth := &stubAuth{}
	session, _, events := newStubSession(auth)
	session.Init(context.Background())
	<-events

	user, err := session.SignIn(context.Background(), "rui@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleRider, user.Role)

	snapshot := session.Snapshot()
	assert.Equal(t, StateAuthenticated, snapshot.State)
	assert.False(t, snapshot.Provisional)
	assert.Equal(t, event.TypeSignedIn, (<-events).Type)
}

func TestSessionSignInFailureSurfacesError(t *testing.T) {
	rejected := &HTTPError{Status: 401, Message: "Invalid credentials"}
	auth := &stubAuth{loginErr: rejected}
	session, _, _ := newStubSession(auth)
	session.Init(context.Background())

	_, err := session.SignIn(context.Background(), "rui@example.com", "wrong")
	require.ErrorIs(t, err, rejected)
	assert.Equal(t, StateAnonymous, session.Snapshot().State)
}

func TestSessionLoadingWhileSigningIn(t *testing.T) {
	auth := &stubAuth{loginGate: make(chan struct{})}
	session, _, _ := newStubSession(auth)
	session.Init(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = session.SignIn(context.Background(), "rui@example.com", "secret")
	}()

	assert.Eventually(t, func() bool { return session.Snapshot().Loading }, time.Second, time.Millisecond)
	close(auth.loginGate)
	<-done
	assert.False(t, session.Snapshot().Loading)
}

func TestSessionSignUpIsProvisional(t *testing.T) {
	auth := &stubAuth{}
	session, _, events := newStubSession(auth)
	session.Init(context.Background())
	<-events

	user, err := session.SignUpCustomer(context.Background(), model.RegisterCustomerRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "user-2", user.ID)

	snapshot := session.Snapshot()
	assert.True(t, snapshot.IsAuthenticated())
	assert.True(t, snapshot.Provisional)
	assert.Equal(t, event.TypeRegistered, (<-events).Type)

	_, err = session.SignUpRider(context.Background(), model.RegisterRiderRequest{})
	assert.Error(t, err)
}

func TestSessionSignOut(t *testing.T) {
	auth := &stubAuth{}
	session, nav, events := newStubSession(auth)
	session.Init(context.Background())
	<-events
	_, err := session.SignIn(context.Background(), "rui@example.com", "secret")
	require.NoError(t, err)
	<-events

	session.SignOut(context.Background())

	assert.Equal(t, StateAnonymous, session.Snapshot().State)
	assert.Equal(t, 1, auth.loggedOut)
	assert.Equal(t, "/signin", nav.Last())
	got := <-events
	assert.Equal(t, event.TypeSignedOut, got.Type)
	assert.Equal(t, "user-1", got.ActorID)
}

func TestSessionExpire(t *testing.T) {
	auth := &stubAuth{stored: &model.User{ID: "user-1"}, valid: true}
	session, _, events := newStubSession(auth)
	session.Init(context.Background())
	<-events

	session.Expire(context.Background())

	assert.Equal(t, StateAnonymous, session.Snapshot().State)
	assert.Equal(t, event.TypeSessionExpired, (<-events).Type)
}
