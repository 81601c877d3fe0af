// Package loaderr defines the error taxonomy the voicegroup loader and
// wave asset loader report to their callers: NotFound, FormatError,
// IoError, and OutOfMemory. The audio render path never returns or wraps
// these; it substitutes silence for any missing resource instead.
package loaderr

import "errors"

// Sentinel kinds, matched with errors.Is against the *Error wrapper below.
var (
	NotFound    = errors.New("not found")
	FormatError = errors.New("format error")
	IoError     = errors.New("io error")
	OutOfMemory = errors.New("out of memory")
)

// Error wraps one of the sentinel kinds with a message and optional cause,
// so callers can do errors.Is(err, loaderr.NotFound) while still printing
// a useful path/context string.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

func Wrap(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
