package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/queue"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
	"github.com/wekeepgrowing/payment-processing/internal/observability/metrics"
)

// WebhookEnvelope is the message body published to the broker at intake
// time. Consumers re-read the durable event row, so redeliveries and
// out-of-order messages are safe.
type WebhookEnvelope struct {
	EventID uuid.UUID `json:"event_id"`
}

// webhookPayload is the slice of the stored gateway payload the
// reconciler needs
type webhookPayload struct {
	Payload struct {
		ID         string          `json:"id"`
		AuthAmount decimal.Decimal `json:"authAmount"`
		AuthCode   string          `json:"authCode"`
	} `json:"payload"`
}

// WebhookProcessor reconciles stored gateway notifications against
// local transaction and subscription state. Updates are monotonic:
// notifications that would move an entity backwards are logged and
// skipped, never applied.
type WebhookProcessor interface {
	Handle(ctx context.Context, d queue.Delivery)
	Run(ctx context.Context, q queue.Queue) error
}

type webhookProcessor struct {
	eventRepo repository.WebhookEventRepository
	txRepo    repository.TransactionRepository
	subRepo   repository.SubscriptionRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewWebhookProcessor creates the reconciliation consumer
func NewWebhookProcessor(
	eventRepo repository.WebhookEventRepository,
	txRepo repository.TransactionRepository,
	subRepo repository.SubscriptionRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) WebhookProcessor {
	return &webhookProcessor{
		eventRepo: eventRepo,
		txRepo:    txRepo,
		subRepo:   subRepo,
		metrics:   m,
		logger:    logger,
	}
}

// Run consumes the webhook topic until ctx is canceled
func (p *webhookProcessor) Run(ctx context.Context, q queue.Queue) error {
	return q.Consume(ctx, p.Handle)
}

// Handle processes one delivery. The event row is updated durably
// before the delivery is acked; failures reject without requeue so the
// broker routes them to the dead letter topic.
func (p *webhookProcessor) Handle(ctx context.Context, d queue.Delivery) {
	var envelope WebhookEnvelope
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		p.logger.Error("malformed webhook envelope", zap.Error(err))
		p.reject(d, false)
		return
	}

	event, err := p.eventRepo.FindByID(ctx, envelope.EventID)
	if err != nil {
		p.logger.Error("webhook event lookup failed",
			zap.String("event_id", envelope.EventID.String()),
			zap.Error(err))
		p.reject(d, false)
		return
	}
	if event.Status == model.WebhookStatusProcessed || event.Status == model.WebhookStatusSkipped {
		// redelivery of an event already reconciled
		p.ack(d)
		return
	}

	event.Status = model.WebhookStatusProcessing
	if err := p.dispatch(ctx, event); err != nil {
		event.MarkFailed(err.Error())
		if updateErr := p.eventRepo.Update(ctx, event); updateErr != nil {
			p.logger.Error("failed to record webhook failure",
				zap.String("external_event_id", event.ExternalEventID),
				zap.Error(updateErr))
		}
		p.metrics.WebhookEventsTotal.WithLabelValues(string(event.EventType), "failed").Inc()
		p.logger.Error("webhook reconciliation failed",
			zap.String("external_event_id", event.ExternalEventID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
		p.reject(d, false)
		return
	}

	if event.Status != model.WebhookStatusSkipped {
		event.MarkProcessed()
	}
	if err := p.eventRepo.Update(ctx, event); err != nil {
		p.logger.Error("failed to mark webhook processed",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(err))
		p.reject(d, false)
		return
	}
	result := "processed"
	if event.Status == model.WebhookStatusSkipped {
		result = "skipped"
	}
	p.metrics.WebhookEventsTotal.WithLabelValues(string(event.EventType), result).Inc()
	p.ack(d)
}

func (p *webhookProcessor) dispatch(ctx context.Context, event *model.WebhookEvent) error {
	switch event.EventType {
	case model.WebhookEventPaymentAuthorized:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusPending {
				return errStale
			}
			payload := parsePayload(event.Payload)
			return tx.ApplyAuthorized(payload.Payload.ID, payload.Payload.AuthCode)
		})
	case model.WebhookEventPaymentCaptured:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusAuthorized {
				return errStale
			}
			amount := tx.Amount
			if tx.AuthorizedAmount.Valid {
				amount = tx.AuthorizedAmount.Decimal
			}
			return tx.ApplyCaptured(amount)
		})
	case model.WebhookEventPaymentSettled:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusCaptured {
				return errStale
			}
			return tx.ApplySettled()
		})
	case model.WebhookEventPaymentVoided:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if !tx.CanVoid() {
				return errStale
			}
			return tx.ApplyVoided()
		})
	case model.WebhookEventPaymentRefunded:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if !tx.CanRefund() {
				return errStale
			}
			amount := parsePayload(event.Payload).Payload.AuthAmount
			if !amount.IsPositive() || amount.Cmp(tx.RefundableAmount()) > 0 {
				amount = tx.RefundableAmount()
			}
			return tx.ApplyRefund(amount)
		})
	case model.WebhookEventPaymentDeclined:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status.IsTerminal() {
				return errStale
			}
			return tx.ApplyDeclined("WEBHOOK_DECLINED", "declined by gateway notification")
		})
	case model.WebhookEventFraudHeld:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusCaptured {
				return errStale
			}
			return tx.ApplyFraudHold()
		})
	case model.WebhookEventFraudApproved:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusPendingReview {
				return errStale
			}
			return tx.ApplyFraudApprove()
		})
	case model.WebhookEventFraudDeclined:
		return p.applyTransactionEvent(ctx, event, func(tx *model.Transaction) error {
			if tx.Status != model.TransactionStatusPendingReview {
				return errStale
			}
			return tx.ApplyFraudDecline()
		})
	case model.WebhookEventSubscriptionSuspended:
		return p.applySubscriptionEvent(ctx, event, func(sub *model.Subscription) error {
			if sub.Status == model.SubscriptionStatusSuspended || sub.Status.IsTerminal() {
				return errStale
			}
			return sub.ApplySuspended()
		})
	case model.WebhookEventSubscriptionTerminated:
		return p.applySubscriptionEvent(ctx, event, func(sub *model.Subscription) error {
			if sub.Status.IsTerminal() {
				return errStale
			}
			return sub.ApplyTerminated()
		})
	case model.WebhookEventSubscriptionCanceled:
		return p.applySubscriptionEvent(ctx, event, func(sub *model.Subscription) error {
			if sub.Status.IsTerminal() {
				return errStale
			}
			return sub.Cancel("canceled at gateway")
		})
	case model.WebhookEventSubscriptionExpiring:
		p.logger.Info("subscription expiring soon",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Stringp("gateway_subscription_id", event.GatewaySubscriptionID))
		return nil
	default:
		event.MarkSkipped(fmt.Sprintf("unrecognized event type %q", event.RawEventType))
		p.logger.Warn("skipping unrecognized webhook event",
			zap.String("external_event_id", event.ExternalEventID),
			zap.String("raw_event_type", event.RawEventType))
		return nil
	}
}

// errStale marks a notification that arrived after local state already
// moved past it
var errStale = errors.New("stale event")

func (p *webhookProcessor) applyTransactionEvent(ctx context.Context, event *model.WebhookEvent, apply func(*model.Transaction) error) error {
	if event.GatewayTransactionID == nil || *event.GatewayTransactionID == "" {
		return fmt.Errorf("event %s carries no gateway transaction id", event.ExternalEventID)
	}
	gatewayTxID := *event.GatewayTransactionID

	var lastErr error
	for attempt := 0; attempt < maxConcurrencyRetries; attempt++ {
		tx, err := p.txRepo.FindByGatewayID(ctx, gatewayTxID)
		if err != nil {
			return err
		}
		if err := apply(tx); err != nil {
			if errors.Is(err, errStale) {
				event.MarkSkipped(fmt.Sprintf("transaction %s already in status %s", tx.ID, tx.Status))
				p.logger.Info("discarding stale webhook event",
					zap.String("external_event_id", event.ExternalEventID),
					zap.String("event_type", string(event.EventType)),
					zap.String("transaction_id", tx.ID.String()),
					zap.String("status", string(tx.Status)))
				return nil
			}
			var transitionErr *domainErr.InvalidTransitionError
			if errors.As(err, &transitionErr) {
				event.MarkSkipped(err.Error())
				return nil
			}
			return err
		}
		err = p.txRepo.Update(ctx, tx)
		if err == nil {
			p.logger.Info("webhook reconciled transaction",
				zap.String("external_event_id", event.ExternalEventID),
				zap.String("event_type", string(event.EventType)),
				zap.String("transaction_id", tx.ID.String()),
				zap.String("status", string(tx.Status)))
			return nil
		}
		var conflict *domainErr.ConcurrentModificationError
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (p *webhookProcessor) applySubscriptionEvent(ctx context.Context, event *model.WebhookEvent, apply func(*model.Subscription) error) error {
	if event.GatewaySubscriptionID == nil || *event.GatewaySubscriptionID == "" {
		return fmt.Errorf("event %s carries no gateway subscription id", event.ExternalEventID)
	}
	gatewaySubID := *event.GatewaySubscriptionID

	var lastErr error
	for attempt := 0; attempt < maxConcurrencyRetries; attempt++ {
		sub, err := p.subRepo.FindByGatewayID(ctx, gatewaySubID)
		if err != nil {
			return err
		}
		if err := apply(sub); err != nil {
			if errors.Is(err, errStale) {
				event.MarkSkipped(fmt.Sprintf("subscription %s already in status %s", sub.ID, sub.Status))
				p.logger.Info("discarding stale webhook event",
					zap.String("external_event_id", event.ExternalEventID),
					zap.String("event_type", string(event.EventType)),
					zap.String("subscription_id", sub.ID.String()),
					zap.String("status", string(sub.Status)))
				return nil
			}
			var transitionErr *domainErr.InvalidTransitionError
			if errors.As(err, &transitionErr) {
				event.MarkSkipped(err.Error())
				return nil
			}
			return err
		}
		err = p.subRepo.Update(ctx, sub)
		if err == nil {
			p.logger.Info("webhook reconciled subscription",
				zap.String("external_event_id", event.ExternalEventID),
				zap.String("event_type", string(event.EventType)),
				zap.String("subscription_id", sub.ID.String()),
				zap.String("status", string(sub.Status)))
			return nil
		}
		var conflict *domainErr.ConcurrentModificationError
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func parsePayload(raw []byte) webhookPayload {
	var payload webhookPayload
	_ = json.Unmarshal(raw, &payload)
	return payload
}

func (p *webhookProcessor) ack(d queue.Delivery) {
	if err := d.Ack(); err != nil {
		p.logger.Error("failed to ack delivery", zap.Error(err))
	}
}

func (p *webhookProcessor) reject(d queue.Delivery, requeue bool) {
	if err := d.Reject(requeue); err != nil {
		p.logger.Error("failed to reject delivery", zap.Error(err))
	}
}
