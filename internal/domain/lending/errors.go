package lending

import "errors"

// Error taxonomy shared by every usecase. Handlers map these to HTTP codes
// with errors.Is; usecases add context with fmt.Errorf("%w: ...").
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDocumentLocked     = errors.New("document locked")
	ErrConflictingVersion = errors.New("conflicting version")
	ErrValidation         = errors.New("validation error")
)
