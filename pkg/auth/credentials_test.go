package auth

import (
	"errors"
	"testing"
)

func TestAddOperatorValidation(t *testing.T) {
	s := NewCredentialStore()

	tests := []struct {
		name     string
		username string
		password string
		role     string
		wantErr  error
	}{
		{"Valid owner", "alice", "password123", RoleOwner, nil},
		{"Valid operator", "bob", "password123", RoleOperator, nil},
		{"Empty username", "", "password123", RoleOperator, ErrEmptyUsername},
		{"Weak password", "carol", "short", RoleOperator, ErrWeakPassword},
		{"Bad role", "dave", "password123", "wizard", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddOperator(tt.username, tt.password, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddOperator() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestAddOperatorDuplicate(t *testing.T) {
	s := NewCredentialStore()
	if err := s.AddOperator("alice", "password123", RoleOwner); err != nil {
		t.Fatalf("AddOperator() error = %v", err)
	}
	if err := s.AddOperator("alice", "different-pw", RoleOperator); !errors.Is(err, ErrUserExists) {
		t.Errorf("Duplicate AddOperator() error = %v, want ErrUserExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := NewCredentialStore()
	s.AddOperator("alice", "password123", RoleOwner)

	t.Run("Correct credentials", func(t *testing.T) {
		role, err := s.Authenticate("alice", "password123")
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if role != RoleOwner {
			t.Errorf("Role = %s, want owner", role)
		}
	})

	t.Run("Wrong password", func(t *testing.T) {
		if _, err := s.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("Unknown user", func(t *testing.T) {
		if _, err := s.Authenticate("mallory", "password123"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
		}
	})
}
