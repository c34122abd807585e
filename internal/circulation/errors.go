package circulation

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("book instance not found")
	ErrForbidden = errors.New("not allowed to renew loans")
)

// Reasons carried by InvalidDateError.
const (
	ReasonInPast      = "renewal in past"
	ReasonTooFarAhead = "renewal more than 4 weeks ahead"
)

// InvalidDateError is a user-correctable renewal date outside the window.
type InvalidDateError struct {
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("Invalid date - %s", e.Reason)
}

// IsInvalidDate reports whether err is an InvalidDateError.
func IsInvalidDate(err error) bool {
	var target *InvalidDateError
	return errors.As(err, &target)
}
