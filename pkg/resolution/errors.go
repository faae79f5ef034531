package resolution

import "fmt"

// MalformedResultError reports input that cannot be turned into a graph.
type MalformedResultError struct {
	Reason string
	Err    error
}

func (e *MalformedResultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed resolution result: %s: %v", e.Reason, e.Err)
	}
	return "malformed resolution result: " + e.Reason
}

func (e *MalformedResultError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) *MalformedResultError {
	return &MalformedResultError{Reason: fmt.Sprintf(format, args...)}
}
