package message

import "fmt"

// ParseError reports a payload that is not valid JSON, is not an object, or
// lacks a field its declared type requires.
type ParseError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse message: %s: %v", e.Reason, e.Err)
	}
	return "parse message: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnknownTypeError reports a well-formed payload whose type tag is not recognized.
type UnknownTypeError struct {
	Type string
	Raw  string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("invalid message type %q: %s", e.Type, e.Raw)
}
