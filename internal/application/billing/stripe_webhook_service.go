package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
	infrabilling "github.com/ledgerlink/backend/internal/infrastructure/billing"
)

// StripeWebhookService routes Stripe webhook events into the billing state
// machine: renewal charges roll the cycle over, bounced charges mark the
// subscription payment_failed, and period-end deletions tear it down.
type StripeWebhookService struct {
	config        *infrabilling.StripeConfig
	accountRepo   identity.AccountRepository
	subscriptions *SubscriptionService
	logger        *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(
	config *infrabilling.StripeConfig,
	accountRepo identity.AccountRepository,
	subscriptions *SubscriptionService,
	logger *zap.Logger,
) *StripeWebhookService {
	return &StripeWebhookService{
		config:        config,
		accountRepo:   accountRepo,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the event signature and dispatches it
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	switch event.Type {
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		// A state machine rejection means the event arrived out of order or
		// was already applied. Acknowledge it so Stripe stops retrying.
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			s.logger.Warn("Webhook event rejected by billing state machine",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("code", domainErr.Code))
			result.Message = domainErr.Message
			return result, nil
		}

		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handleInvoicePaid rolls the billing cycle over when a renewal charge
// settles. The first invoice of a subscription is already accounted for by
// Subscribe and is skipped.
func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping")
		return nil
	}
	if invoice.BillingReason != stripe.InvoiceBillingReasonSubscriptionCycle {
		s.logger.Debug("Invoice is not a renewal charge, skipping",
			zap.String("billing_reason", string(invoice.BillingReason)))
		return nil
	}

	acc, ok, err := s.findAccountForInvoice(ctx, &invoice)
	if err != nil || !ok {
		return err
	}

	s.logger.Info("Handling renewal invoice paid",
		zap.String("invoice_id", invoice.ID),
		zap.String("account_id", acc.ID.String()))
	return s.subscriptions.RollOverCycle(ctx, acc.ID, time.Now())
}

// handleInvoicePaymentFailed marks the subscription payment_failed
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping")
		return nil
	}

	acc, ok, err := s.findAccountForInvoice(ctx, &invoice)
	if err != nil || !ok {
		return err
	}

	s.logger.Warn("Handling invoice payment failed",
		zap.String("invoice_id", invoice.ID),
		zap.String("account_id", acc.ID.String()))
	_, err = s.subscriptions.RecordPaymentFailure(ctx, acc.ID)
	return err
}

// handleSubscriptionDeleted finalizes a cancellation once Stripe ends the
// subscription at the close of the billing period
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	customerID := ""
	if subscription.Customer != nil {
		customerID = subscription.Customer.ID
	}
	acc, ok, err := s.findAccountByCustomer(ctx, customerID, subscription.ID)
	if err != nil || !ok {
		return err
	}

	s.logger.Info("Handling subscription deleted",
		zap.String("subscription_id", subscription.ID),
		zap.String("account_id", acc.ID.String()))
	return s.subscriptions.TearDownElapsed(ctx, acc.ID, time.Now())
}

func (s *StripeWebhookService) findAccountForInvoice(ctx context.Context, invoice *stripe.Invoice) (*identity.Account, bool, error) {
	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	return s.findAccountByCustomer(ctx, customerID, invoice.ID)
}

// findAccountByCustomer resolves the account for a Stripe customer. Unknown
// customers are acknowledged rather than errored so Stripe does not retry
// events for customers outside this system.
func (s *StripeWebhookService) findAccountByCustomer(ctx context.Context, customerID, objectID string) (*identity.Account, bool, error) {
	if customerID == "" {
		s.logger.Warn("Webhook object has no customer ID, skipping",
			zap.String("object_id", objectID))
		return nil, false, nil
	}

	acc, err := s.accountRepo.FindByGatewayCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No account for Stripe customer",
				zap.String("customer_id", customerID),
				zap.String("object_id", objectID))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find account: %w", err)
	}
	return acc, true, nil
}
