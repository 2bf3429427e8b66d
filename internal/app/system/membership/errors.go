package membership

import (
	"errors"

	"github.com/dalemusser/supportdesk/internal/app/system/saga"
)

// Rejections. None of these leave any write behind.
var (
	ErrNameRequired    = errors.New("project name is required")
	ErrDuplicateName   = errors.New("a project with this name already exists")
	ErrInvalidDomain   = errors.New("email must be a valid address ending in .com, .co, .org or .net")
	ErrEmailBlocked    = errors.New("email is blocked")
	ErrRoleConflict    = errors.New("email is already registered with a different role")
	ErrInvalidUserType = errors.New("user type must be client or employee")
	ErrAlreadyMember   = errors.New("email is already a member of this project")
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("member not found")
)

// ErrNoChanges is informational: the edit matched the stored values.
var ErrNoChanges = errors.New("no changes")

// ErrPersistence matches every *PartialFailure.
var ErrPersistence = errors.New("persistence failure")

// PartialFailure reports a write sequence that stopped part way. Steps in
// Completed stay committed; nothing is rolled back.
type PartialFailure struct {
	Failure *saga.Failure
}

func (e *PartialFailure) Error() string { return e.Failure.Error() }

// Unwrap exposes both ErrPersistence and the underlying cause.
func (e *PartialFailure) Unwrap() []error { return []error{ErrPersistence, e.Failure} }

// Completed lists the steps that committed before the failure.
func (e *PartialFailure) Completed() []string { return e.Failure.Completed }
