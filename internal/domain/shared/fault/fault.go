// Package fault classifies domain errors so transports can map them without
// knowing every sentinel.
package fault

import "errors"

type Kind string

const (
	KindUnknown          Kind = ""
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindInvalidOperation Kind = "invalid_operation"
	KindNotFound         Kind = "not_found"
)

// Error is a sentinel carrying its classification.
type Error struct {
	kind Kind
	msg  string
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Validation(msg string) *Error       { return New(KindValidation, msg) }
func InvalidOperation(msg string) *Error { return New(KindInvalidOperation, msg) }
func NotFound(msg string) *Error         { return New(KindNotFound, msg) }

func (e *Error) Error() string   { return e.msg }
func (e *Error) FaultKind() Kind { return e.kind }

type kinded interface {
	FaultKind() Kind
}

// KindOf walks the wrap chain and returns the first classification found.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var k kinded
	if errors.As(err, &k) {
		return k.FaultKind()
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
