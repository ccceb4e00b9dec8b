package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient point balance")

	// State machine errors
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrInvalidSubscriptionState = errors.New("invalid subscription state")

	// Gateway boundary errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
	ErrScheduleNotFound   = errors.New("remote schedule not found")
	ErrCorrelationLost    = errors.New("payment correlation data lost")

	// Infra errors
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
)

// InsufficientBalance wraps ErrInsufficientBalance with the user-visible
// "have N, need M" detail.
func InsufficientBalance(have, need int) error {
	return fmt.Errorf("%w: have %d points, need %d", ErrInsufficientBalance, have, need)
}

// PartialReconciliationError reports a compensation run that reached the
// terminal order state but failed one or more reversal sub-steps. It stays
// distinct from plain success so operators can query and replay the failed
// steps; the step names are also persisted on the Refund row.
type PartialReconciliationError struct {
	OrderID     string
	FailedSteps []string
}

func (e *PartialReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation partial for order %s: failed steps [%s]",
		e.OrderID, strings.Join(e.FailedSteps, ", "))
}

// AsPartialReconciliation unwraps err into a *PartialReconciliationError if it is one.
func AsPartialReconciliation(err error) (*PartialReconciliationError, bool) {
	var pe *PartialReconciliationError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
