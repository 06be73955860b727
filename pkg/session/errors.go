package session

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrSessionNotFound = errors.New("session does not exist")
	ErrValidation      = errors.New("validation error")
	ErrStoreClosed     = errors.New("session store closed")

	ErrScratchMigrationTarget  = errors.New("refusing to migrate legacy cache to the scratch session")
	ErrMigrationTargetRequired = errors.New("a target session is required to migrate the legacy cache")
)

// ValidationError reports an unusable session name or payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrValidation.Error()
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
