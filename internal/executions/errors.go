package executions

import "fmt"

// ConflictError reports an operation that is invalid for the execution's
// current state, such as canceling a finished execution.
type ConflictError struct {
	msg string
}

func (e ConflictError) Error() string {
	return e.msg
}

// NewConflictError creates a conflict error.
func NewConflictError(format string, args ...interface{}) error {
	return ConflictError{msg: fmt.Sprintf(format, args...)}
}
