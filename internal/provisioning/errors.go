package provisioning

import "fmt"

// Provisioning steps reported by ProvisionError.
const (
	StepLedger      = "ledger"
	StepCreateStore = "create_store"
	StepApplySchema = "apply_schema"
	StepOpen        = "open"
)

// ProvisionError reports a failed provisioning attempt. It is fatal for the current
// migration attempt; re-running provisioning retries from the start.
type ProvisionError struct {
	Principal string
	Step      string
	Cause     error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning failed for %s at %s: %v", e.Principal, e.Step, e.Cause)
}

func (e *ProvisionError) Unwrap() error {
	return e.Cause
}
