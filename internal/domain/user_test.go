package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		id       UserID
		username string
		wantErr  error
	}{
		{"valid", "b7f9c2d0-9f3e-4c1a-8b2d-000000000000", "guest", nil},
		{"empty id", "", "guest", ErrUserIDInvalid},
		{"oversized id", UserID(strings.Repeat("x", MaxUserIDLen+1)), "guest", ErrUserIDInvalid},
		{"empty username", "sid-1", "", ErrUsernameEmpty},
		{"oversized username", "sid-1", strings.Repeat("x", MaxUsernameLen+1), ErrUsernameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.id, tt.username)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (u.ID != tt.id || u.Username != tt.username) {
				t.Fatalf("unexpected user %+v", u)
			}
		})
	}
}

func TestSetUsername(t *testing.T) {
	u, err := NewUser("sid-1", "guest")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := u.SetUsername(strings.Repeat("x", MaxUsernameLen+1)); !errors.Is(err, ErrUsernameTooLong) {
		t.Fatalf("expected ErrUsernameTooLong, got %v", err)
	}
	if u.Username != "guest" {
		t.Fatalf("rejected rename must not mutate, got %q", u.Username)
	}
	if err := u.SetUsername("alice"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("expected alice, got %q", u.Username)
	}
}
