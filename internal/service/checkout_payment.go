package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/go_cart/internal/domain"
)

const (
	debitSource  = "USER"
	debitMessage = "Order"
)

// processPayment debits the order total. The checkout id is the debit
// reference, so a retried debit for the same checkout is applied once.
//
// A Debit error other than insufficient funds does not say whether the
// ledger committed. The reference is then looked up: an applied debit
// continues as paid, a missing one fails the checkout, and a failed lookup
// raises an incident.
func (s *CheckoutService) processPayment(ctx context.Context, customerID int64, res *CheckoutResult) error {
	ctx, span := tracer.Start(ctx, "checkout.processPayment")
	defer span.End()

	memo := domain.BalanceMemo{
		From:      debitSource,
		Message:   debitMessage,
		Reference: res.CheckoutID.String(),
	}
	remaining, err := s.balance.Debit(ctx, customerID, res.Total, memo)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			_, rejectErr := s.reject(ctx, customerID, res, domain.ReasonInsufficientFunds, ErrInsufficientFunds)
			s.record(context.WithoutCancel(ctx), res)
			return rejectErr
		}
		return s.settleDebit(context.WithoutCancel(ctx), customerID, res, memo.Reference, err)
	}

	if err := s.advance(res, domain.CheckoutStatusBalanceDebited); err != nil {
		return err
	}
	s.record(context.WithoutCancel(ctx), res)

	s.log.InfoContext(ctx, "balance debited",
		slog.String("checkout_id", res.CheckoutID.String()),
		slog.Int64("customer_id", customerID),
		slog.Int64("amount", res.Total),
		slog.Int64("remaining", remaining))
	return nil
}

// settleDebit resolves a debit that returned debitErr. It returns nil when
// the ledger shows the debit committed and the checkout is BALANCE_DEBITED.
func (s *CheckoutService) settleDebit(ctx context.Context, customerID int64, res *CheckoutResult, reference string, debitErr error) error {
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	applied, err := s.balance.DebitApplied(lookupCtx, customerID, reference)
	cancel()
	if err != nil {
		return s.raiseIncident(ctx, customerID, res, []StepFailure{
			{Step: "debit balance", Err: debitErr},
			{Step: "check debit", Err: err},
		})
	}
	if !applied {
		res.Status = domain.CheckoutStatusFailed
		s.record(ctx, res)
		return fmt.Errorf("failed to debit balance: %w", debitErr)
	}

	if err := s.advance(res, domain.CheckoutStatusBalanceDebited); err != nil {
		return err
	}
	s.record(ctx, res)
	s.log.WarnContext(ctx, "balance debited despite ledger error",
		slog.String("checkout_id", res.CheckoutID.String()),
		slog.Int64("customer_id", customerID),
		slog.Int64("amount", res.Total),
		slog.String("error", debitErr.Error()))
	return nil
}
