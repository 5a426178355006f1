package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/internal/domain"
	"github.com/fjod/go_cart/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fjod/go_cart/internal/service")

// CheckoutResult describes where a checkout ended. For business rejections
// Status is FAILED and Reason says why.
type CheckoutResult struct {
	CheckoutID uuid.UUID             `json:"checkout_id"`
	Status     domain.CheckoutStatus `json:"status"`
	Reason     domain.FailureReason  `json:"reason,omitempty"`
	Total      int64                 `json:"total"`
	Items      []domain.OrderedItem  `json:"items,omitempty"`
	Changes    []domain.Change       `json:"changes,omitempty"`
	Notified   bool                  `json:"notified"`
}

type CheckoutService struct {
	carts    *CartService
	store    CartStore
	balance  BalanceLedger
	stock    StockLedger
	notifier Notifier
	journal  CheckoutJournal
	metrics  *metrics.Checkout
	log      *slog.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewCheckoutService(
	carts *CartService,
	store CartStore,
	balance BalanceLedger,
	stock StockLedger,
	notifier Notifier,
	journal CheckoutJournal,
	m *metrics.Checkout,
	log *slog.Logger,
	timeout time.Duration,
) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		store:    store,
		balance:  balance,
		stock:    stock,
		notifier: notifier,
		journal:  journal,
		metrics:  m,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Order converts the customer's cart into a paid order.
//
// Until the balance debit succeeds the caller may cancel ctx and nothing
// external has changed. After it, the remaining steps run to the end on a
// context detached from ctx, and any failure is reported as an
// *IncidentError instead of being rolled back.
func (s *CheckoutService) Order(ctx context.Context, customerID int64) (res *CheckoutResult, err error) {
	ctx, span := tracer.Start(ctx, "checkout.Order", trace.WithAttributes(attribute.Int64("customer.id", customerID)))
	start := s.now()
	res = &CheckoutResult{Status: domain.CheckoutStatusStart}
	defer func() {
		span.SetAttributes(attribute.String("checkout.status", res.Status.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.Observe(res.Status, res.Reason, s.now().Sub(start))
	}()

	cart, err := s.store.Get(ctx, customerID)
	if err != nil {
		return res, fmt.Errorf("failed to load cart: %w", err)
	}
	cart.CustomerID = customerID

	refreshed, err := s.carts.RefreshCart(ctx, cart)
	if err != nil {
		return res, fmt.Errorf("failed to reconcile cart: %w", err)
	}
	if err := s.advance(res, domain.CheckoutStatusReconciled); err != nil {
		return res, err
	}
	if len(refreshed.Changes) > 0 {
		res.Changes = refreshed.Changes
		return s.reject(ctx, customerID, res, domain.ReasonCartChanged, ErrCartChanged)
	}
	if refreshed.IsEmpty() {
		return s.reject(ctx, customerID, res, domain.ReasonCartEmpty, ErrCartEmpty)
	}

	res.Items = domain.OrderedItems(refreshed)
	res.Total = refreshed.Total()

	balance, err := s.balance.GetBalance(ctx, customerID)
	if err != nil {
		return res, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < res.Total {
		return s.reject(ctx, customerID, res, domain.ReasonInsufficientFunds, ErrInsufficientFunds)
	}
	email, err := s.balance.Email(ctx, customerID)
	if err != nil {
		return res, fmt.Errorf("failed to get customer email: %w", err)
	}
	if err := s.advance(res, domain.CheckoutStatusBalanceChecked); err != nil {
		return res, err
	}

	res.CheckoutID = uuid.New()
	span.SetAttributes(attribute.String("checkout.id", res.CheckoutID.String()))
	if err := s.journal.Create(ctx, &domain.CheckoutSession{
		ID:          res.CheckoutID,
		CustomerID:  customerID,
		Status:      res.Status,
		TotalAmount: res.Total,
		Items:       res.Items,
	}); err != nil {
		return res, fmt.Errorf("failed to open checkout session: %w", err)
	}

	if err := s.processPayment(ctx, customerID, res); err != nil {
		return res, err
	}

	// Point of no return: the customer has paid.
	committed := context.WithoutCancel(ctx)
	return s.fulfil(committed, customerID, email, res)
}

func (s *CheckoutService) fulfil(ctx context.Context, customerID int64, email string, res *CheckoutResult) (*CheckoutResult, error) {
	failures := s.decrementStock(ctx, res.Items)
	if err := s.advance(res, domain.CheckoutStatusStockDecremented); err != nil {
		return res, err
	}
	s.record(ctx, res)

	if err := s.clearOrdered(ctx, customerID, res.Items); err != nil {
		failures = append(failures, StepFailure{Step: "clear cart", Err: err})
	} else {
		if err := s.advance(res, domain.CheckoutStatusCartCleared); err != nil {
			return res, err
		}
		s.record(ctx, res)
	}

	res.Notified = s.sendConfirmation(ctx, customerID, email, res)

	if len(failures) > 0 {
		return res, s.raiseIncident(ctx, customerID, res, failures)
	}

	if res.Notified {
		if err := s.advance(res, domain.CheckoutStatusNotified); err != nil {
			return res, err
		}
		s.record(ctx, res)
	}

	s.log.InfoContext(ctx, "checkout completed",
		slog.String("checkout_id", res.CheckoutID.String()),
		slog.Int64("customer_id", customerID),
		slog.Int64("total", res.Total),
		slog.String("status", res.Status.String()))
	return res, nil
}

// raiseIncident moves the checkout to RECONCILIATION_REQUIRED and records it
// for the incident monitor. ctx must already be detached from the caller.
func (s *CheckoutService) raiseIncident(ctx context.Context, customerID int64, res *CheckoutResult, failures []StepFailure) error {
	incident := &IncidentError{CheckoutID: res.CheckoutID, Failures: failures}
	if err := s.advance(res, domain.CheckoutStatusReconciliationRequired); err != nil {
		return err
	}
	s.log.ErrorContext(ctx, "checkout requires reconciliation",
		slog.String("checkout_id", res.CheckoutID.String()),
		slog.Int64("customer_id", customerID),
		slog.String("error", incident.Error()))
	if err := s.journal.RecordIncident(ctx, res.CheckoutID, res.Status, incident.Error()); err != nil {
		s.log.ErrorContext(ctx, "failed to record checkout incident",
			slog.String("checkout_id", res.CheckoutID.String()), slog.String("error", err.Error()))
	}
	return incident
}

func (s *CheckoutService) advance(res *CheckoutResult, next domain.CheckoutStatus) error {
	if !res.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, res.Status, next)
	}
	res.Status = next
	return nil
}

// reject ends a checkout on a business rule. These are expected outcomes and
// are not logged as errors.
func (s *CheckoutService) reject(ctx context.Context, customerID int64, res *CheckoutResult, reason domain.FailureReason, err error) (*CheckoutResult, error) {
	res.Status = domain.CheckoutStatusFailed
	res.Reason = reason
	s.log.InfoContext(ctx, "checkout rejected",
		slog.Int64("customer_id", customerID),
		slog.String("reason", string(reason)))
	return res, err
}

// record writes the current status to the journal. A journal failure does
// not change the outcome of a paid order.
func (s *CheckoutService) record(ctx context.Context, res *CheckoutResult) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.journal.Transition(callCtx, res.CheckoutID, res.Status); err != nil {
		s.log.ErrorContext(ctx, "failed to record checkout status",
			slog.String("checkout_id", res.CheckoutID.String()),
			slog.String("status", res.Status.String()),
			slog.String("error", err.Error()))
	}
}
