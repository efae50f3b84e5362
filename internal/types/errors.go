package types

import "errors"

var (
	// ErrDataUnavailable means every fetch attempt across all periods failed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrRequestFailed means the LLM call itself errored.
	ErrRequestFailed = errors.New("request failed")
	// ErrMalformedResponse means the LLM answer was not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrPersistenceFailed means the signal log could not be read or rewritten.
	ErrPersistenceFailed = errors.New("persistence failed")
)

// ErrorKind maps err onto a stable label for logs, journal entries and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, ErrRequestFailed):
		return "request_failed"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	default:
		return "unknown"
	}
}
