package domain

import "errors"

var (
	ErrNetwork      = errors.New("network error")
	ErrParse        = errors.New("malformed response")
	ErrMissingField = errors.New("missing field")
	ErrAuth         = errors.New("authentication rejected")
	ErrInvalidPrice = errors.New("invalid price")
	ErrConfig       = errors.New("configuration error")
	ErrNotFound     = errors.New("not found")
	ErrLockHeld     = errors.New("lock already held")
)

// IsCycleFatal reports whether err must abort the whole report cycle rather
// than just exclude one asset from it.
func IsCycleFatal(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrConfig)
}
