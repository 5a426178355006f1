package domain

type CheckoutStatus string

const (
	CheckoutStatusStart                  CheckoutStatus = "START"
	CheckoutStatusReconciled             CheckoutStatus = "RECONCILED"
	CheckoutStatusBalanceChecked         CheckoutStatus = "BALANCE_CHECKED"
	CheckoutStatusBalanceDebited         CheckoutStatus = "BALANCE_DEBITED"
	CheckoutStatusStockDecremented       CheckoutStatus = "STOCK_DECREMENTED"
	CheckoutStatusCartCleared            CheckoutStatus = "CART_CLEARED"
	CheckoutStatusNotified               CheckoutStatus = "NOTIFIED"
	CheckoutStatusFailed                 CheckoutStatus = "FAILED"
	CheckoutStatusReconciliationRequired CheckoutStatus = "RECONCILIATION_REQUIRED"
)

// FailureReason is the business rule that rejected a checkout.
type FailureReason string

const (
	ReasonCartChanged       FailureReason = "CART_CHANGED"
	ReasonCartEmpty         FailureReason = "CART_EMPTY"
	ReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusStart:            {CheckoutStatusReconciled, CheckoutStatusFailed},
	CheckoutStatusReconciled:       {CheckoutStatusBalanceChecked, CheckoutStatusFailed},
	CheckoutStatusBalanceChecked:   {CheckoutStatusBalanceDebited, CheckoutStatusFailed, CheckoutStatusReconciliationRequired},
	CheckoutStatusBalanceDebited:   {CheckoutStatusStockDecremented, CheckoutStatusReconciliationRequired},
	CheckoutStatusStockDecremented: {CheckoutStatusCartCleared, CheckoutStatusReconciliationRequired},
	CheckoutStatusCartCleared:      {CheckoutStatusNotified, CheckoutStatusReconciliationRequired},
}

// CanTransitionTo reports whether the saga may move from s to next.
// Once the balance is debited the only failure exit is RECONCILIATION_REQUIRED.
// BALANCE_CHECKED may also reach it when the debit outcome cannot be settled.
func (s CheckoutStatus) CanTransitionTo(next CheckoutStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible. CART_CLEARED is
// also a final state when the confirmation could not be delivered.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusNotified ||
		s == CheckoutStatusFailed ||
		s == CheckoutStatusReconciliationRequired
}

// Committed reports whether money has left the customer's balance.
func (s CheckoutStatus) Committed() bool {
	switch s {
	case CheckoutStatusBalanceDebited, CheckoutStatusStockDecremented,
		CheckoutStatusCartCleared, CheckoutStatusNotified,
		CheckoutStatusReconciliationRequired:
		return true
	}
	return false
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
