package service

import (
	"errors"
	"sort"
	"sync"

	"hawker-order-service/internal/models"
	"hawker-order-service/internal/util"

	"go.uber.org/zap"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user
var ErrNotAuthenticated = errors.New("user must be authenticated")

// AuthListener is called with the current user, or nil after sign-out
type AuthListener func(user *models.User)

// Session tracks the auth state reported by the external identity provider
type Session struct {
	mu        sync.Mutex
	user      *models.User
	listeners map[int]AuthListener
	nextID    int
	logger    *zap.Logger
}

// NewSession creates a signed-out session
func NewSession() *Session {
	return &Session{
		listeners: make(map[int]AuthListener),
		logger:    util.GetLogger(),
	}
}

// SignIn records a sign-in event
func (s *Session) SignIn(user models.User) {
	s.mu.Lock()
	s.user = &user
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.logger.Info("User signed in", zap.String("user_id", user.ID))
	for _, fn := range listeners {
		u := user
		fn(&u)
	}
}

// SignOut records a sign-out event
func (s *Session) SignOut() {
	s.mu.Lock()
	wasSignedIn := s.user != nil
	s.user = nil
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if !wasSignedIn {
		return
	}
	s.logger.Info("User signed out")
	for _, fn := range listeners {
		fn(nil)
	}
}

// CurrentUser returns a copy of the signed-in user, or nil
func (s *Session) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is signed in
func (s *Session) IsAuthenticated() bool {
	return s.CurrentUser() != nil
}

// OnAuthStateChanged registers fn, calls it once with the current state and
// again on every change. The returned function removes it.
func (s *Session) OnAuthStateChanged(fn AuthListener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.user
	if current != nil {
		u := *current
		current = &u
	}
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// snapshotListeners must be called with mu held
func (s *Session) snapshotListeners() []AuthListener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]AuthListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
