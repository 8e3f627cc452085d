package lifecycle

import "fmt"

// ValidationError reports a connect attempt missing a required field.
// The gateway maps it to an unauthorized response.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("connect: %s is required", e.Field)
}

// NotFoundError reports a disconnect for a session id the registry never
// recorded (or already forgot).
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("disconnect: session %q does not exist", e.SessionID)
}
