// Package apperror defines the engine's error taxonomy. Every error carries a
// Kind, which decides how callers react (reject, treat as existing state,
// 404, retry), and a Code, which errors.Is matches on.
package apperror

import (
	"errors"

	"github.com/google/uuid"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

type Code string

const (
	CodeInvalidInput              Code = "INVALID_INPUT"
	CodeInvalidChildOwnership     Code = "INVALID_CHILD_OWNERSHIP"
	CodeChildNotOwnedByGuardian   Code = "CHILD_NOT_OWNED_BY_GUARDIAN"
	CodeTargetChildRequired       Code = "TARGET_CHILD_REQUIRED"
	CodeSelfConnection            Code = "SELF_CONNECTION"
	CodePendingTargetMissingChild Code = "PENDING_TARGET_MISSING_CHILD"
	CodeUnresolvablePendingTarget Code = "UNRESOLVABLE_PENDING_TARGET"
	CodeUnresolvableHostChild     Code = "UNRESOLVABLE_HOST_CHILD"
	CodeInvalidSchedule           Code = "INVALID_SCHEDULE"
	CodeChildNotConnected         Code = "CHILD_NOT_CONNECTED"

	CodeDuplicatePendingRequest Code = "DUPLICATE_PENDING_REQUEST"
	CodeAlreadyConnected        Code = "ALREADY_CONNECTED"
	CodeAlreadyInvited          Code = "ALREADY_INVITED"
	CodeAlreadyResolved         Code = "ALREADY_RESOLVED"

	CodeGuardianNotFound   Code = "GUARDIAN_NOT_FOUND"
	CodeChildNotFound      Code = "CHILD_NOT_FOUND"
	CodeRequestNotFound    Code = "CONNECTION_REQUEST_NOT_FOUND"
	CodeConnectionNotFound Code = "CONNECTION_NOT_FOUND"
	CodeActivityNotFound   Code = "ACTIVITY_NOT_FOUND"
	CodeInvitationNotFound Code = "INVITATION_NOT_FOUND"

	CodeForbidden Code = "FORBIDDEN"

	CodeTransientStore Code = "TRANSIENT_STORE"
)

// Error is the engine error type.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	// ExistingID identifies the entity a conflict collided with, so callers
	// can treat the conflict as success-with-existing-state.
	ExistingID uuid.UUID
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code Code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func Validation(code Code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code Code, message string, existingID uuid.UUID) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, ExistingID: existingID}
}

func NotFound(code Code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Transient(cause error) *Error {
	return Wrap(KindTransient, CodeTransientStore, "store temporarily unavailable", cause)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ExistingIDOf returns the conflicting entity id, or uuid.Nil.
func ExistingIDOf(err error) uuid.UUID {
	var e *Error
	if errors.As(err, &e) {
		return e.ExistingID
	}
	return uuid.Nil
}
