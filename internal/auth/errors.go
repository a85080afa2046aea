package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when no token was supplied.
	ErrMissingToken = errors.New("auth: missing token")
	// ErrInvalidToken matches every rejected token.
	ErrInvalidToken = errors.New("auth: invalid token")
)

func invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidToken, cause)
}
