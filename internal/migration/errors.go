package migration

import (
	"errors"
	"fmt"

	"github.com/jonathan/career-atoms/internal/types"
)

// ErrAlreadyStarted is returned by Run when the session's migration has already been
// started, including by a concurrent call.
var ErrAlreadyStarted = errors.New("migration already started for this session")

// StepError wraps a failure of one migration step.
type StepError struct {
	State State
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("migration failed while %s: %v", e.State, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// ImportFailedError reports that the remote import recorded errors. The local store
// was left untouched.
type ImportFailedError struct {
	Result *types.ImportResult
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("import into remote store reported %d error(s); local data kept", len(e.Result.Errors))
}
