package proposals

import (
	"errors"
	"fmt"
)

var (
	ErrCreationDisabled = errors.New("proposal creation is not enabled")
	ErrOfficialDisabled = errors.New("official proposals are not enabled")
	ErrVotingClosed     = errors.New("voting is not open for this proposal")
	ErrAlreadyVoted     = errors.New("user has already voted this proposal")
)

// ValidationError rejects an operation with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AuthorizationError means the caller must satisfy Handler before the
// operation is allowed. Callers render it as "authorization required".
type AuthorizationError struct {
	Handler string
	Reason  string
}

func (e *AuthorizationError) Error() string {
	if e.Handler == "" {
		return "authorization required: " + e.Reason
	}
	return fmt.Sprintf("authorization required: %s", e.Handler)
}

type OutOfRangeError struct {
	Page int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range", e.Page)
}

func validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
