package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type operator struct {
	username     string
	passwordHash []byte
	role         string
}

// CredentialStore holds operator accounts for the admin API. Accounts
// live in memory and are seeded at startup from configuration.
type CredentialStore struct {
	mu        sync.RWMutex
	operators map[string]*operator
}

// NewCredentialStore creates an empty credential store
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		operators: make(map[string]*operator),
	}
}

// AddOperator registers an operator account with a bcrypt-hashed password
func (s *CredentialStore) AddOperator(username, password, role string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}
	if !validRoles[role] {
		return ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.operators[username]; exists {
		return ErrUserExists
	}

	s.operators[username] = &operator{
		username:     username,
		passwordHash: hash,
		role:         role,
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the
// operator's role on success.
func (s *CredentialStore) Authenticate(username, password string) (string, error) {
	s.mu.RLock()
	op, exists := s.operators[username]
	s.mu.RUnlock()

	if !exists {
		// Burn a bcrypt comparison anyway so missing and wrong-password
		// responses take the same time.
		bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(password))
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(op.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return op.role, nil
}

// Count returns the number of registered operators
func (s *CredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.operators)
}
