package runners

import (
	"errors"
	"fmt"
)

// PermanentError marks a runner failure that retrying cannot fix.
type PermanentError struct {
	msg string
}

func (e PermanentError) Error() string {
	return e.msg
}

// NewPermanentError creates a permanent runner error.
func NewPermanentError(format string, args ...interface{}) error {
	return PermanentError{msg: fmt.Sprintf(format, args...)}
}

// IsPermanent reports whether an error should stop the retry loop.
func IsPermanent(err error) bool {
	var perm PermanentError
	return errors.As(err, &perm)
}
