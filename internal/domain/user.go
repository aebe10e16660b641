// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	// ErrUserIDInvalid indicates an empty or oversized user id. Ids come
	// from client session tokens, so they arrive from outside the process.
	ErrUserIDInvalid = errors.New("user id invalid")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
}

// NewUser validates both identifiers before construction, keeping
// ad-hoc struct literals out of adapters.
func NewUser(id UserID, username string) (*User, error) {
	if len(id) == 0 || len(id) > MaxUserIDLen {
		return nil, ErrUserIDInvalid
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username}, nil
}

func (u *User) SetUsername(username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	u.Username = username
	return nil
}

func validateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
