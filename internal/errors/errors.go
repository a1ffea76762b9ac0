// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the caller may not touch a message.
	ErrForbidden          = errors.New("permission denied")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ErrMessageNotFound is returned by lookups on a missing message id
type ErrMessageNotFound struct {
	MessageID int
}

func (e *ErrMessageNotFound) Error() string {
	return fmt.Sprintf("message with ID %d not found", e.MessageID)
}

// Helper constructor
func NewMessageNotFound(id int) error {
	return &ErrMessageNotFound{MessageID: id}
}

type ErrUserNotFound struct {
	Username string
	UserID   int
}

func (e *ErrUserNotFound) Error() string {
	if e.Username != "" {
		return fmt.Sprintf("user %q not found", e.Username)
	}
	return fmt.Sprintf("user with ID %d not found", e.UserID)
}

func NewUserNotFound(username string) error {
	return &ErrUserNotFound{Username: username}
}

func NewUserIDNotFound(id int) error {
	return &ErrUserNotFound{UserID: id}
}

// IsNotFound reports whether err wraps one of the not-found types.
func IsNotFound(err error) bool {
	var m *ErrMessageNotFound
	var u *ErrUserNotFound
	return errors.As(err, &m) || errors.As(err, &u)
}
