package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = domain.ErrProductNotFound
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrInsufficientFunds = domain.ErrInsufficientFunds
	ErrInvalidQuantity   = errors.New("requested quantity must be positive")
	ErrCartChanged       = errors.New("cart changed since last review, check the cart before ordering")
	ErrCartEmpty         = errors.New("cart is empty, nothing to checkout")

	ErrReconciliationRequired = errors.New("order committed with inconsistencies, reconciliation required")
	IllegalTransitionError    = errors.New("illegal transition of checkout status")
)

// StepFailure is one failed action after the balance debit.
type StepFailure struct {
	Step   string
	ItemID int64
	Err    error
}

func (f StepFailure) String() string {
	if f.ItemID != 0 {
		return fmt.Sprintf("%s (item %d): %v", f.Step, f.ItemID, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Step, f.Err)
}

// IncidentError reports a checkout that was paid for but could not be
// completed cleanly. It matches ErrReconciliationRequired.
type IncidentError struct {
	CheckoutID uuid.UUID
	Failures   []StepFailure
}

func (e *IncidentError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return fmt.Sprintf("checkout %s requires reconciliation: %s", e.CheckoutID, strings.Join(parts, "; "))
}

func (e *IncidentError) Is(target error) bool {
	return target == ErrReconciliationRequired
}

func (e *IncidentError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
