// Package auth is the development authentication service: bcrypt-hashed
// accounts, federated identity tokens from config, and bearer sessions.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownIdentity is returned for a federated token nobody configured.
	ErrUnknownIdentity = errors.New("unknown identity token")
	// ErrSessionNotFound is returned when a bearer token was never issued.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a bearer token outlived its TTL.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserExists is returned by Register for a taken email.
	ErrUserExists = errors.New("user already exists")
)

// Session is an issued bearer token.
type Session struct {
	Token     string
	Email     string
	ExpiresAt time.Time
}

// Service is safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	users     map[string][]byte // email -> bcrypt hash
	sessions  map[string]Session
	federated map[string]string // identity token -> email
	ttl       time.Duration
	cost      int
	now       func() time.Time
}

// NewService creates a service issuing sessions valid for ttl.
func NewService(ttl time.Duration, federated map[string]string) *Service {
	fed := make(map[string]string, len(federated))
	for tok, email := range federated {
		fed[tok] = normalizeEmail(email)
	}
	return &Service{
		users:     make(map[string][]byte),
		sessions:  make(map[string]Session),
		federated: fed,
		ttl:       ttl,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

// Register adds an account.
func (s *Service) Register(email, password string) error {
	email = normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return ErrUserExists
	}
	s.users[email] = hash
	return nil
}

// Login verifies a password and issues a session.
func (s *Service) Login(email, password string) (Session, error) {
	email = normalizeEmail(email)

	s.mu.RLock()
	hash, ok := s.users[email]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(email), nil
}

// LoginFederated exchanges a configured identity token for a session.
func (s *Service) LoginFederated(idToken string) (Session, error) {
	s.mu.RLock()
	email, ok := s.federated[idToken]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrUnknownIdentity
	}
	return s.issue(email), nil
}

// Resolve returns the session for a bearer token, evicting it when expired.
func (s *Service) Resolve(token string) (Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Logout revokes a bearer token.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// HasUser reports whether an account exists for email.
func (s *Service) HasUser(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[normalizeEmail(email)]
	return ok
}

func (s *Service) issue(email string) Session {
	sess := Session{
		Token:     uuid.NewString(),
		Email:     email,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
