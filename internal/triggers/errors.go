package triggers

import "fmt"

// ValidationError marks input problems that callers surface as a 400. It is
// shared by the trigger, rule, action and execution services.
type ValidationError struct {
	msg string
}

func (e ValidationError) Error() string {
	return e.msg
}

// NewValidationError formats a validation error.
func NewValidationError(format string, args ...interface{}) error {
	return ValidationError{msg: fmt.Sprintf(format, args...)}
}
