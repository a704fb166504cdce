package identity

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore is the slice of the record store the identity service needs.
// The canonical implementation lives in the store package.
type UserStore interface {
	GetUser(id string) (*User, error)
	PutUser(u *User) error
	ListUsers() ([]*User, error)
}

// Service issues and verifies sessions and owns registration.
// User records live in the injected store; sessions and credentials are
// volatile and scoped to this process.
type Service struct {
	users UserStore

	mu        sync.RWMutex
	passwords map[string]string   // user id -> password
	sessions  map[string]*Session // by token
	now       func() time.Time
}

// NewService creates an identity service over the given user store.
func NewService(users UserStore) *Service {
	return &Service{
		users:     users,
		passwords: make(map[string]string),
		sessions:  make(map[string]*Session),
		now:       time.Now,
	}
}

// Register creates a user and an initial session.
func (s *Service) Register(username, email, password string) (*User, *Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("register: username and password required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.users.ListUsers()
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}
	for _, u := range existing {
		if u.Username == username {
			return nil, nil, ErrUsernameTaken
		}
	}

	u := &User{
		ID:        GenerateUserID(),
		Username:  username,
		Email:     email,
		CreatedAt: s.now(),
	}
	if err := s.users.PutUser(u); err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}
	s.passwords[u.ID] = password

	sess := s.createSessionLocked(u.ID)
	return u, sess, nil
}

// Login verifies credentials and issues a new session.
func (s *Service) Login(username, password string) (*User, *Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.users.ListUsers()
	if err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}
	for _, u := range existing {
		if u.Username == username && s.passwords[u.ID] == password {
			return u, s.createSessionLocked(u.ID), nil
		}
	}
	return nil, nil, ErrInvalidCredentials
}

// Logout destroys a session. Unknown tokens are not an error.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// VerifySession resolves a token to its user.
func (s *Service) VerifySession(token string) (*User, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	u, err := s.users.GetUser(sess.UserID)
	if err != nil {
		return nil, false
	}
	return u, true
}

// SweepExpired removes sessions created before now-ttl and returns how many
// were removed. A ttl of zero disables expiry.
func (s *Service) SweepExpired(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for token, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *Service) createSessionLocked(userID string) *Session {
	sess := &Session{
		Token:     GenerateToken(),
		UserID:    userID,
		CreatedAt: s.now(),
	}
	s.sessions[sess.Token] = sess
	return sess
}
