package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-favorpay/app/entity"
	"github.com/vibast-solutions/ms-go-favorpay/app/factory"
)

const (
	ReasonUnauthorized = "unauthorized"
	ReasonTokenExpired = "token_expired"
	ReasonLogout       = "logout"
)

var ErrNoRegistration = errors.New("no registration in progress")

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore persists the auth tokens between runs.
type TokenStore interface {
	LoadTokens(ctx context.Context) (Tokens, error)
	SaveTokens(ctx context.Context, tokens Tokens) error
	ClearTokens(ctx context.Context) error
}

// Event is published once each time an authenticated session ends.
type Event struct {
	Reason string
	At     time.Time
}

type Listener func(Event)

// Registration holds signup data between the register call and OTP
// verification.
type Registration struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	StartedAt   time.Time
}

// Session is the process-wide auth state: tokens, current user and the
// registration in progress. It implements the token source of the backend
// client.
type Session struct {
	store  TokenStore
	logger logrus.FieldLogger
	now    func() time.Time

	mu           sync.Mutex
	loaded       bool
	tokens       Tokens
	user         *entity.User
	registration *Registration
	loggingOut   bool
	listeners    map[uint64]Listener
	nextID       uint64
}

func New(store TokenStore) *Session {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Session{
		store:     store,
		logger:    factory.NewModuleLogger("session"),
		now:       time.Now,
		listeners: map[uint64]Listener{},
	}
}

// Subscribe registers l for invalidation events and returns a function that
// removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	tokens, err := s.store.LoadTokens(ctx)
	if err != nil {
		return err
	}
	s.tokens = tokens
	s.loaded = true
	return nil
}

// Token returns the current access token, or "" when signed out. An access
// token whose JWT expiry has passed ends the session.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.mu.Unlock()
		return "", err
	}

	token := s.tokens.AccessToken
	if token == "" || !s.expired(token) {
		s.mu.Unlock()
		return token, nil
	}

	listeners := s.clearLocked(ctx)
	s.mu.Unlock()

	s.dispatch(listeners, ReasonTokenExpired)
	return "", nil
}

func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	return s.tokens.RefreshToken, nil
}

// Invalidate ends the session only if token is still the current access
// token, so concurrent 401s for the same token clear it once.
func (s *Session) Invalidate(ctx context.Context, token string) bool {
	s.mu.Lock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.WithError(err).Warn("session_load_failed")
	}
	if token == "" || token != s.tokens.AccessToken {
		s.mu.Unlock()
		return false
	}

	reason := ReasonUnauthorized
	if s.loggingOut {
		reason = ReasonLogout
	}
	listeners := s.clearLocked(ctx)
	s.mu.Unlock()

	s.dispatch(listeners, reason)
	return true
}

// BeginLogout marks a logout requested by the user. A 401 answered while it
// runs ends the session with ReasonLogout. SignOut completes it.
func (s *Session) BeginLogout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggingOut = true
}

// SignIn stores the tokens of a fresh session.
func (s *Session) SignIn(ctx context.Context, tokens Tokens, user *entity.User) error {
	if tokens.AccessToken == "" {
		return errors.New("access token is required")
	}
	if err := s.store.SaveTokens(ctx, tokens); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.tokens = tokens
	s.user = copyUser(user)
	s.registration = nil
	s.loggingOut = false
	return nil
}

// SignOut clears the session. Listeners are notified when a session was
// active.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.loggingOut = false
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.WithError(err).Warn("session_load_failed")
	}
	active := s.tokens.AccessToken != ""
	var listeners []Listener
	if active {
		listeners = s.clearLocked(ctx)
	} else if err := s.store.ClearTokens(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.user = nil
	s.mu.Unlock()

	if active {
		s.dispatch(listeners, ReasonLogout)
	}
	return nil
}

func (s *Session) Authenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// Subject identifies the signed-in account: the sub claim of the access token,
// else the loaded user. It is empty when the account is not known.
func (s *Session) Subject(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(ctx); err != nil {
		s.logger.WithError(err).Warn("session_load_failed")
		return ""
	}
	if s.tokens.AccessToken == "" {
		return ""
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.tokens.AccessToken, claims); err == nil && claims.Subject != "" {
		return claims.Subject
	}
	if s.user != nil {
		return s.user.ID
	}
	return ""
}

func (s *Session) CurrentUser() *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

func (s *Session) SetUser(user *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = copyUser(user)
}

func (s *Session) BeginRegistration(reg Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg.StartedAt.IsZero() {
		reg.StartedAt = s.now()
	}
	s.registration = &reg
}

func (s *Session) Registration() (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registration == nil {
		return Registration{}, ErrNoRegistration
	}
	return *s.registration, nil
}

func (s *Session) ClearRegistration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registration = nil
}

// clearLocked wipes the tokens and returns the listeners to notify once the
// lock is released.
func (s *Session) clearLocked(ctx context.Context) []Listener {
	s.tokens = Tokens{}
	s.user = nil
	if err := s.store.ClearTokens(ctx); err != nil {
		s.logger.WithError(err).Error("session_clear_tokens_failed")
	}

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func (s *Session) dispatch(listeners []Listener, reason string) {
	event := Event{Reason: reason, At: s.now()}
	s.logger.WithField("reason", reason).Info("session_ended")
	for _, l := range listeners {
		l(event)
	}
}

func (s *Session) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(s.now())
}

func copyUser(user *entity.User) *entity.User {
	if user == nil {
		return nil
	}
	copied := *user
	return &copied
}
