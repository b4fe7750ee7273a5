// Package wxerrors defines the typed error taxonomy shared by every
// component of the ingestion pipeline (C7). No error crosses a component
// boundary as an opaque string: callers match on Kind, and a wrapped cause
// (if any) is always reachable via errors.Unwrap/errors.As.
package wxerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the structured failure modes that the pipeline can
// report at its boundaries (§4.5).
type Kind int

const (
	// InvalidStationCode means a station identifier was not 3-4 ASCII
	// letters at the point it was validated.
	InvalidStationCode Kind = iota
	// InvalidData means a fetched record was missing a required field.
	InvalidData
	// NoData means the upstream source returned an empty result for an
	// otherwise valid request.
	NoData
	// NetworkError means the HTTP transport failed, returned a non-2xx
	// status, or returned a body that could not be decoded.
	NetworkError
	// Timeout means a deadline was exceeded or an interruption signal was
	// observed while waiting on I/O.
	Timeout
	// StorageError means the object store rejected or failed an upload.
	StorageError
	// ParseError is reserved for the external Parser collaborator (§6.3);
	// the core never constructs one of these for its own logic.
	ParseError
)

func (k Kind) String() string {
	switch k {
	case InvalidStationCode:
		return "InvalidStationCode"
	case InvalidData:
		return "InvalidData"
	case NoData:
		return "NoData"
	case NetworkError:
		return "NetworkError"
	case Timeout:
		return "Timeout"
	case StorageError:
		return "StorageError"
	case ParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Error is the single structured error type surfaced at every pipeline
// boundary. It always carries a Kind; StationID and a wrapped Cause are
// optional.
type Error struct {
	Kind      Kind
	StationID string
	Message   string
	Cause     error

	// StatusCode is set only for Kind == NetworkError when the upstream
	// responded with a non-2xx HTTP status.
	StatusCode int
}

func (e *Error) Error() string {
	var s string
	if e.StationID != "" {
		s = fmt.Sprintf("%s: %s", e.StationID, e.Kind)
	} else {
		s = e.Kind.String()
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, wxerrors.New(kind, ...)) to match purely on
// Kind, which is the common case for operator dispatch logic (§7).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a bare *Error of the given kind, optionally naming a
// station.
func New(kind Kind, stationID string) *Error {
	return &Error{Kind: kind, StationID: stationID}
}

// Newf constructs an *Error with a formatted message.
func Newf(kind Kind, stationID, format string, args ...any) *Error {
	return &Error{Kind: kind, StationID: stationID, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an *Error of the given kind with cause chained so that
// errors.Unwrap (and errors.As into the cause's own type) keeps working.
func Wrap(kind Kind, stationID string, cause error) *Error {
	return &Error{Kind: kind, StationID: stationID, Cause: cause}
}

// Wrapf is Wrap with an additional formatted message.
func Wrapf(kind Kind, stationID string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, StationID: stationID, Cause: cause, Message: fmt.Sprintf(format, args...)}
}

// Of returns the *Error in err's chain, if any.
func Of(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf reports the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	e, ok := Of(err)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
