package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a uniqueness violation (duplicate membership or registration).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState signals an operation against a closed group or similar.
	ErrInvalidState = errors.New("invalid state")
	// ErrNoAvailableGroup signals that random assignment found no joinable group.
	ErrNoAvailableGroup = errors.New("no available group")
	// ErrNameSpaceExhausted signals that a name schema has no free suffix left.
	ErrNameSpaceExhausted = errors.New("name space exhausted")
	// ErrInvalidPassword signals a failed group password check.
	ErrInvalidPassword = errors.New("invalid password")
)

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool         { return errors.Is(err, ErrConflict) }
func IsInvalidState(err error) bool     { return errors.Is(err, ErrInvalidState) }
func IsNoAvailableGroup(err error) bool { return errors.Is(err, ErrNoAvailableGroup) }
func IsInvalidPassword(err error) bool  { return errors.Is(err, ErrInvalidPassword) }
