package eol

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport failures, including 5xx responses that
	// survived every automatic retry.
	ErrNetwork = errors.New("eol: network failure")
	// ErrNotFound is a 404 from a static endpoint, meaning "no data".
	ErrNotFound = errors.New("eol: not found")
	// ErrDecode means the payload did not have the expected shape.
	ErrDecode = errors.New("eol: malformed response")
	// ErrOversize is returned when the server still reports an oversized
	// response for a page that cannot be split any further.
	ErrOversize = errors.New("eol: response too large at minimum page size")
)

// ProtocolError is an envelope code the engine does not know how to recover from.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("eol: unrecoverable response code %s: %s", e.Code, e.Message)
}
