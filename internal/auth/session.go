package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pagefold/auth-client/internal/api"
)

// basePath prefixes every auth endpoint. The paths are a contract with the
// backend.
const basePath = "/api/v1/auth"

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind drops updates rather than blocking publication.
const subscriberBuffer = 16

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("auth: session channel closed")

// Executor performs one HTTP exchange against the backend and returns the
// raw success payload. Failures carry an api classification.
// *api.Client implements it.
type Executor interface {
	Do(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// SessionChannel holds the client's belief about which user (if any) is
// currently signed in and broadcasts every change of that belief. All
// operations go through the backend first; the held state only moves on a
// completed exchange, so a transient failure never erases a known session.
//
// A nil *User everywhere in this package means "no session". That is a
// normal value, not an error.
type SessionChannel struct {
	exec Executor

	// initOnce guards the one-time initial state resolution.
	initOnce sync.Once

	// mu serializes decode+publish so concurrent operations cannot emit
	// out of completion order, and guards the subscriber registry.
	mu      sync.Mutex
	current *User
	subs    map[int]chan *User
	nextSub int
	closed  bool
}

// NewSessionChannel creates a session channel backed by exec. The initial
// state is resolved lazily, at most once, on the first operation.
func NewSessionChannel(exec Executor) *SessionChannel {
	return &SessionChannel{
		exec: exec,
		subs: make(map[int]chan *User),
	}
}

type codeRequest struct {
	Email            string `json:"email"`
	IsDashboardLogin bool   `json:"isDashboardLogin"`
}

type verifyRequest struct {
	Email            string `json:"email"`
	Code             string `json:"code"`
	IsDashboardLogin bool   `json:"isDashboardLogin"`
}

// CurrentUser asks the backend who is signed in, publishes the answer, and
// returns it. (nil, nil) means the backend reports no session. Any failure
// other than unauthenticated is returned as-is and publishes nothing.
func (s *SessionChannel) CurrentUser(ctx context.Context) (*User, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	// An explicit lookup is itself the initial state resolution.
	s.initOnce.Do(func() {})
	return s.fetchCurrentUser(ctx)
}

// RequestSignInCode asks the backend to email a one-time sign-in code.
// Submitting the request does not establish a session, so nothing is
// published on success.
func (s *SessionChannel) RequestSignInCode(ctx context.Context, email string, dashboard bool) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.ensureInit(ctx)
	_, err := s.exec.Do(ctx, http.MethodPost, basePath+"/request-code", codeRequest{
		Email:            email,
		IsDashboardLogin: dashboard,
	})
	return err
}

// VerifySignInCode exchanges an emailed code for a signed-in session. On
// success the new user is published and the full result (user plus token)
// returned; the token is the caller's to store. On failure nothing is
// published and the existing session state stands.
func (s *SessionChannel) VerifySignInCode(ctx context.Context, email, code string, dashboard bool) (*AuthResult, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	s.ensureInit(ctx)
	raw, err := s.exec.Do(ctx, http.MethodPost, basePath+"/verify-code", verifyRequest{
		Email:            email,
		Code:             code,
		IsDashboardLogin: dashboard,
	})
	if err != nil {
		return nil, err
	}
	result, err := api.Decode[AuthResult](raw)
	if err != nil {
		return nil, err
	}
	s.publish(&result.User)
	return &result, nil
}

// SignInAnonymously creates a session without credentials. Same publication
// contract as VerifySignInCode.
func (s *SessionChannel) SignInAnonymously(ctx context.Context) (*AuthResult, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	s.ensureInit(ctx)
	raw, err := s.exec.Do(ctx, http.MethodPost, basePath+"/anonymous", struct{}{})
	if err != nil {
		return nil, err
	}
	result, err := api.Decode[AuthResult](raw)
	if err != nil {
		return nil, err
	}
	s.publish(&result.User)
	return &result, nil
}

// SignOut notifies the backend and clears the local session. The contract is
// "local session is cleared", not "server was notified": a failed backend
// call is logged and swallowed, and nil is published regardless. The
// signature has no error return on purpose.
func (s *SessionChannel) SignOut(ctx context.Context) {
	if s.isClosed() {
		return
	}
	s.ensureInit(ctx)
	if _, err := s.exec.Do(ctx, http.MethodPost, basePath+"/sign-out", nil); err != nil {
		log.Warn().Err(err).Msg("session: sign-out notification failed")
	}
	s.publish(nil)
}

// Subscribe attaches a listener to the state feed and returns its channel
// plus a detach func. Values published before the subscriber joined are not
// replayed. The channel is closed on detach or when the session channel is
// closed.
func (s *SessionChannel) Subscribe() (<-chan *User, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *User, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Current returns the latest known user without touching the network.
func (s *SessionChannel) Current() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close shuts the feed permanently. Idempotent; safe with no subscribers.
// After Close no further values are published and operations return ErrClosed.
func (s *SessionChannel) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// ensureInit resolves the initial session state at most once per instance.
// Initialization never fails observably: any lookup failure resolves to
// signed-out.
func (s *SessionChannel) ensureInit(ctx context.Context) {
	s.initOnce.Do(func() {
		if _, err := s.fetchCurrentUser(ctx); err != nil {
			log.Debug().Err(err).Msg("session: initial user lookup failed")
			s.publish(nil)
		}
	})
}

// fetchCurrentUser performs the GET /me round trip and interprets the
// outcome. Unauthenticated is folded into the (nil, nil) value here; every
// other failure propagates untouched.
func (s *SessionChannel) fetchCurrentUser(ctx context.Context) (*User, error) {
	raw, err := s.exec.Do(ctx, http.MethodGet, basePath+"/me", nil)
	if err != nil {
		if api.IsKind(err, api.KindUnauthenticated) {
			s.publish(nil)
			return nil, nil
		}
		return nil, err
	}
	user, err := api.Decode[User](raw)
	if err != nil {
		return nil, err
	}
	s.publish(&user)
	return &user, nil
}

// publish replaces the current value and fans it out. Sends never block: a
// subscriber with a full buffer misses this value and keeps its place in the
// feed.
func (s *SessionChannel) publish(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = u
	for id, ch := range s.subs {
		select {
		case ch <- u:
		default:
			log.Debug().Int("subscriber", id).Msg("session: subscriber full, dropping state update")
		}
	}
}

func (s *SessionChannel) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
