package booking

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error kinds returned by this package.  Callers match them with errors.Is;
// the message after the kind carries the detail.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUniquenessViolation = errors.New("already exists")
	ErrSeatAlreadyTaken    = errors.New("seat already taken")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrNotFound            = errors.New("not found")
)

// SeatTakenError names the requested seats that were already sold.  It
// matches ErrSeatAlreadyTaken.
type SeatTakenError struct {
	Seats []string
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatAlreadyTaken, strings.Join(e.Seats, ", "))
}

func (e *SeatTakenError) Is(target error) bool {
	return target == ErrSeatAlreadyTaken
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// checkText rejects values that are not UTF-8 or exceed max characters.
func checkText(field, v string, max int) error {
	if !utf8.ValidString(v) {
		return invalidf("%s is not valid UTF-8", field)
	}
	if n := utf8.RuneCountInString(v); n > max {
		return invalidf("%s is %d characters, at most %d allowed", field, n, max)
	}
	return nil
}
