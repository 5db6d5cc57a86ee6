package social

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

var (
	// ErrBlocked rejects a message or history read between users with a
	// block edge in either direction.
	ErrBlocked = errors.New("social: user blocked")

	// ErrInvalid rejects input that fails validation before any write.
	ErrInvalid = errors.New("social: invalid request")

	// ErrThrottled rejects an invite inside the inviter's cooldown window.
	ErrThrottled = errors.New("social: throttled")
)

// ThrottledError carries the remaining cooldown. It matches ErrThrottled.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("social: throttled, retry after %s", e.RetryAfter)
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

const (
	MaxMessageBytes = 4096 // message content, in bytes
	MaxTextChars    = 2000 // message content, in characters
)

// ValidateContent checks that a direct message meets content requirements.
func ValidateContent(text string) error {
	if len(text) == 0 {
		return fmt.Errorf("%w: message text is empty", ErrInvalid)
	}
	if len(text) > MaxMessageBytes {
		return fmt.Errorf("%w: message exceeds %d byte limit", ErrInvalid, MaxMessageBytes)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: message contains invalid UTF-8", ErrInvalid)
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("%w: message exceeds %d character limit", ErrInvalid, MaxTextChars)
	}
	return nil
}

// validatePair rejects empty ids and self-targeted actions.
func validatePair(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalid)
	}
	if from == to {
		return fmt.Errorf("%w: cannot target yourself", ErrInvalid)
	}
	return nil
}
