package domain

// BalanceMemo describes a balance adjustment in the customer's ledger history.
// Reference, when set, must be unique per adjustment so a retried debit is
// applied only once.
type BalanceMemo struct {
	From      string
	Message   string
	Reference string
}
