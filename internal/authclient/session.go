package authclient

import (
	"context"
	"sync"

	"delivery-portal/internal/event"
	"delivery-portal/internal/model"
)

type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Authenticator is what the session needs from AuthService.
type Authenticator interface {
	Login(ctx context.Context, email string, password string) (*model.LoginResponse, error)
	RegisterCustomer(ctx context.Context, req model.RegisterCustomerRequest) (*model.User, error)
	RegisterRider(ctx context.Context, req model.RegisterRiderRequest) (*model.User, error)
	Logout(ctx context.Context)
	ValidateToken(ctx context.Context) bool
	StoredUser(ctx context.Context) (*model.User, bool)
	ClearCredentials(ctx context.Context)
}

type Snapshot struct {
	State   State
	User    *model.User
	Loading bool
	// Provisional is set after registration: the user is known but holds no
	// token yet.
	Provisional bool
}

func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// Session is the single owner of "who is signed in" for the process.
type Session struct {
	auth       Authenticator
	nav        Navigator
	bus        event.Bus
	signInPath string

	mu          sync.RWMutex
	state       State
	user        *model.User
	provisional bool
	pending     int
	generation  uint64
}

func NewSession(auth Authenticator, nav Navigator, bus event.Bus, signInPath string) *Session {
	if nav == nil {
		nav = NavigatorFunc(func(context.Context, string) {})
	}
	if signInPath == "" {
		signInPath = DefaultSignInPath
	}
	return &Session{auth: auth, nav: nav, bus: bus, signInPath: signInPath, state: StateInitializing}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var user *model.User
	if s.user != nil {
		copied := *s.user
		user = &copied
	}
	return Snapshot{
		State:       s.state,
		User:        user,
		Loading:     s.state == StateInitializing || s.pending > 0,
		Provisional: s.provisional,
	}
}

// Init resolves the Initializing state. A stored user is shown immediately
// and then confirmed against the backend; a rejected token clears
// everything.
func (s *Session) Init(ctx context.Context) Snapshot {
	stored, ok := s.auth.StoredUser(ctx)
	if !ok {
		s.auth.ClearCredentials(ctx)
		s.transition(StateAnonymous, nil, false)
		s.publish(event.TypeSessionCleared, "")
		return s.Snapshot()
	}

	gen := s.transition(StateAuthenticated, stored, false)

	if s.auth.ValidateToken(ctx) {
		s.publish(event.TypeSessionRestored, stored.ID)
		return s.Snapshot()
	}

	s.mu.Lock()
	if s.generation != gen {
		// Someone signed in or out while we were validating.
		s.mu.Unlock()
		return s.Snapshot()
	}
	s.mu.Unlock()

	s.auth.ClearCredentials(ctx)
	s.transition(StateAnonymous, nil, false)
	s.publish(event.TypeSessionCleared, stored.ID)
	return s.Snapshot()
}

func (s *Session) SignIn(ctx context.Context, email string, password string) (*model.User, error) {
	done := s.begin()
	defer done()

	login, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.mu.Lock()
		if s.state != StateAuthenticated || s.provisional {
			s.setLocked(StateAnonymous, nil, false)
		}
		s.mu.Unlock()
		return nil, err
	}

	user := login.User
	s.transition(StateAuthenticated, &user, false)
	s.publish(event.TypeSignedIn, user.ID)
	return &user, nil
}

func (s *Session) SignUpCustomer(ctx context.Context, req model.RegisterCustomerRequest) (*model.User, error) {
	done := s.begin()
	defer done()

	user, err := s.auth.RegisterCustomer(ctx, req)
	if err != nil {
		return nil, err
	}
	s.registered(user)
	return user, nil
}

func (s *Session) SignUpRider(ctx context.Context, req model.RegisterRiderRequest) (*model.User, error) {
	done := s.begin()
	defer done()

	user, err := s.auth.RegisterRider(ctx, req)
	if err != nil {
		return nil, err
	}
	s.registered(user)
	return user, nil
}

func (s *Session) registered(user *model.User) {
	s.transition(StateAuthenticated, user, true)
	s.publish(event.TypeRegistered, user.ID)
}

// SignOut never fails outward; the session ends up anonymous and the user
// is sent to sign in.
func (s *Session) SignOut(ctx context.Context) {
	done := s.begin()
	defer done()

	actor := s.actorID()
	s.auth.Logout(ctx)
	s.transition(StateAnonymous, nil, false)
	s.publish(event.TypeSignedOut, actor)
	s.nav.Navigate(ctx, s.signInPath)
}

// Expire is called after the client gave up refreshing the token. The
// credentials are already gone.
func (s *Session) Expire(_ context.Context) {
	actor := s.actorID()
	s.transition(StateAnonymous, nil, false)
	s.publish(event.TypeSessionExpired, actor)
}

func (s *Session) begin() func() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
	}
}

func (s *Session) transition(state State, user *model.User, provisional bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(state, user, provisional)
}

func (s *Session) setLocked(state State, user *model.User, provisional bool) uint64 {
	s.state = state
	s.user = user
	s.provisional = provisional
	s.generation++
	return s.generation
}

func (s *Session) actorID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) publish(typ event.Type, actorID string) {
	if s.bus == nil {
		return
	}
	snapshot := s.Snapshot()
	s.bus.Publish(event.New(typ, actorID, map[string]any{
		"state":       snapshot.State.String(),
		"provisional": snapshot.Provisional,
	}))
}
