package apperror

import "github.com/google/uuid"

// Sentinels for errors.Is. Concrete errors are built by the constructors
// below so they can carry an ExistingID.
var (
	ErrInvalidChildOwnership     = Validation(CodeInvalidChildOwnership, "child does not belong to the calling guardian")
	ErrChildNotOwnedByGuardian   = Validation(CodeChildNotOwnedByGuardian, "child does not belong to the invited guardian")
	ErrTargetChildRequired       = Validation(CodeTargetChildRequired, "responding child is required")
	ErrSelfConnection            = Validation(CodeSelfConnection, "cannot connect to yourself")
	ErrPendingTargetMissingChild = Validation(CodePendingTargetMissingChild, "pending target keyed by connection request must name the invited child")
	ErrUnresolvablePendingTarget = Validation(CodeUnresolvablePendingTarget, "pending target does not resolve to a known guardian or pending connection request")
	ErrUnresolvableHostChild     = Validation(CodeUnresolvableHostChild, "joint host child is not connected to the host child")
	ErrChildNotConnected         = Validation(CodeChildNotConnected, "invited child is not connected to the host child")

	ErrDuplicatePendingRequest = Conflict(CodeDuplicatePendingRequest, "an identical connection request is already pending", uuid.Nil)
	ErrAlreadyConnected        = Conflict(CodeAlreadyConnected, "children are already connected", uuid.Nil)
	ErrAlreadyInvited          = Conflict(CodeAlreadyInvited, "child is already invited to this activity", uuid.Nil)
	ErrAlreadyResolved         = Conflict(CodeAlreadyResolved, "already resolved", uuid.Nil)

	ErrGuardianNotFound   = NotFound(CodeGuardianNotFound, "guardian not found")
	ErrChildNotFound      = NotFound(CodeChildNotFound, "child not found")
	ErrRequestNotFound    = NotFound(CodeRequestNotFound, "connection request not found")
	ErrConnectionNotFound = NotFound(CodeConnectionNotFound, "connection not found")
	ErrActivityNotFound   = NotFound(CodeActivityNotFound, "activity not found")
	ErrInvitationNotFound = NotFound(CodeInvitationNotFound, "invitation not found")

	ErrForbidden = New(KindForbidden, CodeForbidden, "forbidden")
)

func DuplicatePendingRequest(existingID uuid.UUID) *Error {
	return Conflict(CodeDuplicatePendingRequest, ErrDuplicatePendingRequest.Message, existingID)
}

func AlreadyConnected(connectionID uuid.UUID) *Error {
	return Conflict(CodeAlreadyConnected, ErrAlreadyConnected.Message, connectionID)
}

func AlreadyInvited(invitationID uuid.UUID) *Error {
	return Conflict(CodeAlreadyInvited, ErrAlreadyInvited.Message, invitationID)
}

func AlreadyResolved(id uuid.UUID, status string) *Error {
	return Conflict(CodeAlreadyResolved, "already "+status, id)
}

func Invalid(message string) *Error {
	return Validation(CodeInvalidInput, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, CodeForbidden, message)
}
