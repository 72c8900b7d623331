package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/dto"
	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/money"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
	"github.com/wekeepgrowing/payment-processing/internal/observability/metrics"
)

// SubscriptionService orchestrates recurring billing agreements
type SubscriptionService interface {
	Create(ctx context.Context, req *dto.SubscriptionRequest, correlationID string) (*dto.SubscriptionResponse, error)
	Update(ctx context.Context, id uuid.UUID, req *dto.SubscriptionUpdateRequest, correlationID string) (*dto.SubscriptionResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req *dto.SubscriptionCancelRequest, correlationID string) (*dto.SubscriptionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error)
	List(ctx context.Context, filter repository.SubscriptionFilter) ([]*dto.SubscriptionResponse, int64, error)
}

type subscriptionService struct {
	subRepo repository.SubscriptionRepository
	gw      gateway.Client
	retry   RetryPolicy
	audit   AuditService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSubscriptionService creates the subscription orchestrator
func NewSubscriptionService(
	subRepo repository.SubscriptionRepository,
	gw gateway.Client,
	retry RetryPolicy,
	audit AuditService,
	m *metrics.Metrics,
	logger *zap.Logger,
) SubscriptionService {
	return &subscriptionService{
		subRepo: subRepo,
		gw:      gw,
		retry:   retry,
		audit:   audit,
		metrics: m,
		logger:  logger,
	}
}

// Create registers a recurring schedule with the gateway and activates
// the local subscription
func (s *subscriptionService) Create(ctx context.Context, req *dto.SubscriptionRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	amount, err := money.FromString(req.Amount, req.Currency)
	if err != nil {
		return nil, domainErr.NewInvalidTransactionStateError("invalid amount: %v", err)
	}
	if !amount.IsPositive() {
		return nil, domainErr.NewInvalidTransactionStateError("amount must be positive, got %s", amount)
	}

	intervalCount := req.IntervalCount
	if intervalCount <= 0 {
		intervalCount = 1
	}
	startDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.StartDate)
		if parseErr != nil {
			return nil, domainErr.NewInvalidTransactionStateError("invalid start date %q", req.StartDate)
		}
		startDate = parsed
	}

	sub := &model.Subscription{
		ID:            uuid.New(),
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		PlanName:      req.PlanName,
		Status:        model.SubscriptionStatusPending,
		Amount:        amount.Amount,
		Currency:      amount.Currency,
		Interval:      model.BillingInterval(req.Interval),
		IntervalCount: intervalCount,
		TotalCycles:   req.TotalCycles,
		TrialDays:     req.TrialDays,
		CardLastFour:  model.CardLastFour(req.Card.Number),
		CardBrand:     model.DetectCardBrand(req.Card.Number),
		CorrelationID: correlationID,
		StartDate:     startDate,
	}
	if req.IdempotencyKey != "" {
		sub.IdempotencyKey = &req.IdempotencyKey
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("registering subscription with gateway",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan", sub.PlanName),
		zap.String("interval", string(sub.Interval)),
		zap.String("correlation_id", correlationID))

	schedule := gateway.SubscriptionSchedule{
		Amount:        amount.Amount,
		Currency:      amount.Currency,
		IntervalUnit:  string(sub.Interval),
		IntervalCount: intervalCount,
		TotalCycles:   req.TotalCycles,
		TrialDays:     req.TrialDays,
		StartDate:     startDate.Format("2006-01-02"),
	}
	card := gateway.Card{
		Number:      req.Card.Number,
		ExpiryMonth: req.Card.ExpiryMonth,
		ExpiryYear:  req.Card.ExpiryYear,
		CVV:         req.Card.CVV,
	}
	result, err := withRetry(ctx, s.logger, s.retry, "CREATE_SUBSCRIPTION", func(ctx context.Context) (*gateway.Result, error) {
		return s.gw.CreateSubscription(ctx, req.PlanName, schedule, card)
	})
	if err != nil {
		return s.failSubscription(ctx, sub, "CREATE_SUBSCRIPTION", correlationID, err)
	}
	if !result.Success {
		gwErr := domainErr.NewGatewayTerminalError(result.ErrorCode, result.ErrorMessage)
		return s.failSubscription(ctx, sub, "CREATE_SUBSCRIPTION", correlationID, gwErr)
	}

	if applyErr := sub.Activate(result.SubscriptionID); applyErr != nil {
		return nil, applyErr
	}
	if err := s.subRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	s.metrics.SubscriptionOpsTotal.WithLabelValues("create", metrics.OutcomeSuccess).Inc()
	s.audit.Record("SUBSCRIPTION_CREATE", true, "subscription", &sub.ID, sub.CustomerID, correlationID,
		fmt.Sprintf("gateway subscription %s", result.SubscriptionID))

	s.logger.Info("subscription active",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("gateway_subscription_id", result.SubscriptionID),
		zap.String("status", string(sub.Status)))
	return dto.NewSubscriptionResponse(sub), nil
}

// Update applies the fields present on the request and leaves the rest
// untouched. Amount and card changes go through the gateway; plan and
// schedule fields are local bookkeeping.
func (s *subscriptionService) Update(ctx context.Context, id uuid.UUID, req *dto.SubscriptionUpdateRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.CanUpdate() {
		return nil, domainErr.NewInvalidTransitionError("subscription", string(sub.Status), "update")
	}
	if req.Empty() {
		return nil, domainErr.NewInvalidTransactionStateError("update requires at least one field")
	}

	newAmount := sub.Amount
	if req.Amount != "" {
		parsed, parseErr := decimal.NewFromString(req.Amount)
		if parseErr != nil || !parsed.IsPositive() {
			return nil, domainErr.NewInvalidTransactionStateError("invalid amount %q", req.Amount)
		}
		newAmount = parsed
	}
	var card *gateway.Card
	if req.Card != nil {
		card = &gateway.Card{
			Number:      req.Card.Number,
			ExpiryMonth: req.Card.ExpiryMonth,
			ExpiryYear:  req.Card.ExpiryYear,
			CVV:         req.Card.CVV,
		}
	}

	if req.Amount != "" || req.Card != nil {
		result, gwErr := withRetry(ctx, s.logger, s.retry, "UPDATE_SUBSCRIPTION", func(ctx context.Context) (*gateway.Result, error) {
			return s.gw.UpdateSubscription(ctx, derefString(sub.GatewaySubscriptionID), newAmount, card)
		})
		if gwErr != nil {
			s.metrics.SubscriptionOpsTotal.WithLabelValues("update", metrics.OutcomeFailed).Inc()
			s.audit.Record("SUBSCRIPTION_UPDATE", false, "subscription", &sub.ID, sub.CustomerID, correlationID, gwErr.Error())
			return nil, gwErr
		}
		if !result.Success {
			s.metrics.SubscriptionOpsTotal.WithLabelValues("update", metrics.OutcomeDeclined).Inc()
			s.audit.Record("SUBSCRIPTION_UPDATE", false, "subscription", &sub.ID, sub.CustomerID, correlationID, result.ErrorMessage)
			return nil, domainErr.NewGatewayTerminalError(result.ErrorCode, result.ErrorMessage)
		}
	}

	updated, err := s.updateSubWithRetry(ctx, id, func(sub *model.Subscription) error {
		if !sub.CanUpdate() {
			return domainErr.NewInvalidTransitionError("subscription", string(sub.Status), "update")
		}
		if req.PlanName != "" {
			sub.PlanName = req.PlanName
		}
		if req.Amount != "" {
			sub.Amount = newAmount
		}
		if req.Interval != "" {
			sub.Interval = model.BillingInterval(req.Interval)
		}
		if req.IntervalCount > 0 {
			sub.IntervalCount = req.IntervalCount
		}
		if req.TotalCycles != nil {
			sub.TotalCycles = *req.TotalCycles
		}
		if req.Card != nil {
			sub.CardLastFour = model.CardLastFour(req.Card.Number)
			sub.CardBrand = model.DetectCardBrand(req.Card.Number)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SubscriptionOpsTotal.WithLabelValues("update", metrics.OutcomeSuccess).Inc()
	s.audit.Record("SUBSCRIPTION_UPDATE", true, "subscription", &updated.ID, updated.CustomerID, correlationID, "")
	return dto.NewSubscriptionResponse(updated), nil
}

// Cancel stops future billing locally and at the gateway
func (s *subscriptionService) Cancel(ctx context.Context, id uuid.UUID, req *dto.SubscriptionCancelRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// canceling twice is a no-op, not an error
	if sub.Status == model.SubscriptionStatusCanceled {
		return dto.NewSubscriptionResponse(sub), nil
	}
	if !sub.CanCancel() {
		return nil, domainErr.NewInvalidTransitionError("subscription", string(sub.Status), "cancel")
	}

	result, err := withRetry(ctx, s.logger, s.retry, "CANCEL_SUBSCRIPTION", func(ctx context.Context) (*gateway.Result, error) {
		return s.gw.CancelSubscription(ctx, derefString(sub.GatewaySubscriptionID))
	})
	if err != nil {
		s.metrics.SubscriptionOpsTotal.WithLabelValues("cancel", metrics.OutcomeFailed).Inc()
		s.audit.Record("SUBSCRIPTION_CANCEL", false, "subscription", &sub.ID, sub.CustomerID, correlationID, err.Error())
		return nil, err
	}
	if !result.Success {
		s.metrics.SubscriptionOpsTotal.WithLabelValues("cancel", metrics.OutcomeDeclined).Inc()
		s.audit.Record("SUBSCRIPTION_CANCEL", false, "subscription", &sub.ID, sub.CustomerID, correlationID, result.ErrorMessage)
		return nil, domainErr.NewGatewayTerminalError(result.ErrorCode, result.ErrorMessage)
	}

	reason := ""
	if req != nil {
		reason = req.Reason
	}
	updated, err := s.updateSubWithRetry(ctx, id, func(sub *model.Subscription) error {
		if sub.Status == model.SubscriptionStatusCanceled {
			return nil
		}
		return sub.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SubscriptionOpsTotal.WithLabelValues("cancel", metrics.OutcomeSuccess).Inc()
	s.audit.Record("SUBSCRIPTION_CANCEL", true, "subscription", &updated.ID, updated.CustomerID, correlationID, reason)

	s.logger.Info("subscription canceled",
		zap.String("subscription_id", updated.ID.String()),
		zap.String("reason", reason))
	return dto.NewSubscriptionResponse(updated), nil
}

func (s *subscriptionService) Get(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*dto.SubscriptionResponse, int64, error) {
	subs, total, err := s.subRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*dto.SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		responses = append(responses, dto.NewSubscriptionResponse(sub))
	}
	return responses, total, nil
}

func (s *subscriptionService) failSubscription(ctx context.Context, sub *model.Subscription, operation, correlationID string, gwErr error) (*dto.SubscriptionResponse, error) {
	if applyErr := sub.ApplyFailed(); applyErr == nil {
		if err := s.subRepo.Update(ctx, sub); err != nil {
			s.logger.Error("failed to persist failed subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err))
		}
	}
	s.metrics.SubscriptionOpsTotal.WithLabelValues("create", metrics.OutcomeFailed).Inc()
	s.audit.Record(operation, false, "subscription", &sub.ID, sub.CustomerID, correlationID, gwErr.Error())
	s.logger.Error("subscription registration failed",
		zap.String("subscription_id", sub.ID.String()),
		zap.Error(gwErr))
	return nil, gwErr
}

func (s *subscriptionService) updateSubWithRetry(ctx context.Context, id uuid.UUID, apply func(*model.Subscription) error) (*model.Subscription, error) {
	var lastErr error
	for attempt := 0; attempt < maxConcurrencyRetries; attempt++ {
		sub, err := s.subRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(sub); err != nil {
			return nil, err
		}
		err = s.subRepo.Update(ctx, sub)
		if err == nil {
			return sub, nil
		}
		var conflict *domainErr.ConcurrentModificationError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("optimistic lock conflict, retrying",
			zap.String("subscription_id", id.String()),
			zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}
