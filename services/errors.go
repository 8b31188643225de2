package services

import (
	"errors"
	"fmt"
)

// Expected outcomes of incident operations. They are returned wrapped with a
// human readable reason; match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidInput = errors.New("invalid input")
)

func reason(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// wrap adds context to a store failure and keeps the chain intact.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
