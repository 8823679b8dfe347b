package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrServe         = errors.New("serve failed")
	ErrBadRequest    = errors.New("bad request")
	ErrBackpressure  = errors.New("backpressure")
	ErrUnauthorized  = errors.New("session required")
	ErrRateLimited   = errors.New("too many submissions")
	ErrCaptcha       = errors.New("captcha not solved")
	ErrInFlight      = errors.New("submission with this idempotency key in progress")
	ErrFeedReadError = errors.New("feed unavailable")
)

// Wrap prefixes err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// WrapKind reports err under op as an instance of kind; errors.Is matches both.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind reports kind under op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}
