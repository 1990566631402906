// Package errs defines the error taxonomy shared by every layer of this
// client (spec.md §7): a small enumerated Kind plus a wrapping Error
// type that carries a log-friendly message and supports errors.Is/As
// against both a Kind and the wrapped cause.
package errs

import "fmt"

// Kind enumerates the error taxonomy from spec.md §7. These are kinds,
// not Go types: every Kind is carried by the single Error type below.
type Kind int

const (
	NullPointer Kind = iota
	InvalidColumn
	OverflowUnderflow
	IndexOutOfBounds
	NonExpandableBuffer
	UninitializedParams
	ParamMismatch
	UnsupportedType
	NoMoreRows
	StringToDecimal
	CoordinateOutOfRange
	Connect
	NoConnections
	Reactor
	ClusterInstanceMismatch
	ElasticModeMismatch
	UnknownProcedure
	MisplacedClient
	ProtocolViolation
)

var names = map[Kind]string{
	NullPointer:             "NullPointer",
	InvalidColumn:           "InvalidColumn",
	OverflowUnderflow:       "OverflowUnderflow",
	IndexOutOfBounds:        "IndexOutOfBounds",
	NonExpandableBuffer:     "NonExpandableBuffer",
	UninitializedParams:     "UninitializedParams",
	ParamMismatch:           "ParamMismatch",
	UnsupportedType:         "UnsupportedType",
	NoMoreRows:              "NoMoreRows",
	StringToDecimal:         "StringToDecimal",
	CoordinateOutOfRange:    "CoordinateOutOfRange",
	Connect:                 "Connect",
	NoConnections:           "NoConnections",
	Reactor:                 "Reactor",
	ClusterInstanceMismatch: "ClusterInstanceMismatch",
	ElasticModeMismatch:     "ElasticModeMismatch",
	UnknownProcedure:        "UnknownProcedure",
	MisplacedClient:         "MisplacedClient",
	ProtocolViolation:       "ProtocolViolation",
}

func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return "Unknown"
}

// Error is a user-visible failure: an enumerated Kind plus a string
// suitable for logging, optionally wrapping a lower-level cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so callers can write errors.Is(err, errs.New(errs.UnknownProcedure, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Of reports the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return 0, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
