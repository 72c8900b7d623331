package usecase

import (
	"context"
	"encoding/json"
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

// maxConcurrencyRetries bounds re-read attempts after a lost optimistic
// locking race
const maxConcurrencyRetries = 3

const transactionCachePrefix = "payment:tx:"

// PaymentService orchestrates card payment operations against the
// gateway and the transaction store.
type PaymentService interface {
	Purchase(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error)
	Authorize(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error)
	Capture(ctx context.Context, id uuid.UUID, req *dto.CaptureRequest, correlationID string) (*dto.TransactionResponse, error)
	Void(ctx context.Context, id uuid.UUID, correlationID string) (*dto.TransactionResponse, error)
	Refund(ctx context.Context, id uuid.UUID, req *dto.RefundRequest, correlationID string) (*dto.TransactionResponse, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*dto.TransactionResponse, int64, error)
}

type paymentService struct {
	txRepo   repository.TransactionRepository
	gw       gateway.Client
	retry    RetryPolicy
	audit    AuditService
	cache    repository.CacheRepository
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewPaymentService creates the payment orchestrator
func NewPaymentService(
	txRepo repository.TransactionRepository,
	gw gateway.Client,
	retry RetryPolicy,
	audit AuditService,
	cache repository.CacheRepository,
	cacheTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		txRepo:   txRepo,
		gw:       gw,
		retry:    retry,
		audit:    audit,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
	}
}

// Purchase authorizes and captures in one gateway call
func (s *paymentService) Purchase(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error) {
	return s.charge(ctx, req, correlationID, model.TransactionTypePurchase)
}

// Authorize places a hold without moving money
func (s *paymentService) Authorize(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error) {
	return s.charge(ctx, req, correlationID, model.TransactionTypeAuthorize)
}

func (s *paymentService) charge(ctx context.Context, req *dto.PaymentRequest, correlationID string, txType model.TransactionType) (*dto.TransactionResponse, error) {
	operation := string(txType)

	amount, err := money.FromString(req.Amount, req.Currency)
	if err != nil {
		return nil, domainErr.NewInvalidTransactionStateError("invalid amount: %v", err)
	}
	if !amount.IsPositive() {
		return nil, domainErr.NewInvalidTransactionStateError("amount must be positive, got %s", amount)
	}

	tx := &model.Transaction{
		ID:             uuid.New(),
		OrderID:        req.OrderID,
		CustomerID:     req.CustomerID,
		CustomerEmail:  req.CustomerEmail,
		Type:           txType,
		Status:         model.TransactionStatusPending,
		Amount:         amount.Amount,
		Currency:       amount.Currency,
		RefundedAmount: decimal.Zero,
		CardLastFour:   model.CardLastFour(req.Card.Number),
		CardBrand:      model.DetectCardBrand(req.Card.Number),
		CorrelationID:  correlationID,
		Description:    req.Description,
	}
	if req.IdempotencyKey != "" {
		tx.IdempotencyKey = &req.IdempotencyKey
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("submitting charge to gateway",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("order_id", tx.OrderID),
		zap.String("type", operation),
		zap.String("amount", amount.String()),
		zap.String("correlation_id", correlationID))

	card := gateway.Card{
		Number:      req.Card.Number,
		ExpiryMonth: req.Card.ExpiryMonth,
		ExpiryYear:  req.Card.ExpiryYear,
		CVV:         req.Card.CVV,
	}
	result, err := s.callGateway(ctx, operation, func(ctx context.Context) (*gateway.Result, error) {
		if txType == model.TransactionTypePurchase {
			return s.gw.Purchase(ctx, req.OrderID, amount.Amount, amount.Currency, card)
		}
		return s.gw.Authorize(ctx, req.OrderID, amount.Amount, amount.Currency, card)
	})
	if err != nil {
		return s.failTransaction(ctx, tx, operation, err)
	}
	if !result.Success {
		return s.declineTransaction(ctx, tx, operation, result)
	}

	if applyErr := tx.ApplyAuthorized(result.TransactionID, result.AuthCode); applyErr != nil {
		return nil, applyErr
	}
	if txType == model.TransactionTypePurchase {
		if applyErr := tx.ApplyCaptured(amount.Amount); applyErr != nil {
			return nil, applyErr
		}
	}
	s.applyGatewayFields(tx, result)

	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tx.ID)
	s.metrics.TransactionsTotal.WithLabelValues(operation, metrics.OutcomeSuccess).Inc()
	s.audit.Record(operation, true, "transaction", &tx.ID, tx.CustomerID, correlationID,
		fmt.Sprintf("gateway transaction %s", result.TransactionID))

	s.logger.Info("charge approved",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("gateway_transaction_id", result.TransactionID),
		zap.String("status", string(tx.Status)))
	return dto.NewTransactionResponse(tx), nil
}

// Capture settles a prior authorization. Amount defaults to the full
// authorized amount.
func (s *paymentService) Capture(ctx context.Context, id uuid.UUID, req *dto.CaptureRequest, correlationID string) (*dto.TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.CanCapture() {
		return nil, domainErr.NewInvalidTransitionError("transaction", string(tx.Status), "capture")
	}

	amount := tx.Amount
	if tx.AuthorizedAmount.Valid {
		amount = tx.AuthorizedAmount.Decimal
	}
	if req != nil && req.Amount != "" {
		parsed, parseErr := decimal.NewFromString(req.Amount)
		if parseErr != nil {
			return nil, domainErr.NewInvalidTransactionStateError("invalid capture amount %q", req.Amount)
		}
		amount = parsed
	}
	if !amount.IsPositive() {
		return nil, domainErr.NewInvalidTransactionStateError("capture amount must be positive, got %s", amount)
	}

	result, err := s.callGateway(ctx, "CAPTURE", func(ctx context.Context) (*gateway.Result, error) {
		return s.gw.Capture(ctx, derefString(tx.GatewayTransactionID), amount)
	})
	if err != nil {
		return s.failTransaction(ctx, tx, "CAPTURE", err)
	}
	if !result.Success {
		s.metrics.TransactionsTotal.WithLabelValues("CAPTURE", metrics.OutcomeDeclined).Inc()
		s.audit.Record("CAPTURE", false, "transaction", &tx.ID, tx.CustomerID, correlationID, result.ErrorMessage)
		return nil, domainErr.NewGatewayTerminalError(result.ErrorCode, result.ErrorMessage)
	}

	updated, err := s.updateWithRetry(ctx, id, func(tx *model.Transaction) error {
		return tx.ApplyCaptured(amount)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.metrics.TransactionsTotal.WithLabelValues("CAPTURE", metrics.OutcomeSuccess).Inc()
	s.audit.Record("CAPTURE", true, "transaction", &updated.ID, updated.CustomerID, correlationID,
		fmt.Sprintf("captured %s %s", amount, updated.Currency))
	return dto.NewTransactionResponse(updated), nil
}

// Void cancels an authorization or an unsettled capture
func (s *paymentService) Void(ctx context.Context, id uuid.UUID, correlationID string) (*dto.TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.CanVoid() {
		return nil, domainErr.NewInvalidTransitionError("transaction", string(tx.Status), "void")
	}

	result, err := s.callGateway(ctx, "VOID", func(ctx context.Context) (*gateway.Result, error) {
		return s.gw.Void(ctx, derefString(tx.GatewayTransactionID))
	})
	if err != nil {
		return s.failTransaction(ctx, tx, "VOID", err)
	}
	if !result.Success {
		s.metrics.TransactionsTotal.WithLabelValues("VOID", metrics.OutcomeDeclined).Inc()
		s.audit.Record("VOID", false, "transaction", &tx.ID, tx.CustomerID, correlationID, result.ErrorMessage)
		return nil, domainErr.NewGatewayTerminalError(result.ErrorCode, result.ErrorMessage)
	}

	updated, err := s.updateWithRetry(ctx, id, func(tx *model.Transaction) error {
		return tx.ApplyVoided()
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.metrics.TransactionsTotal.WithLabelValues("VOID", metrics.OutcomeSuccess).Inc()
	s.audit.Record("VOID", true, "transaction", &updated.ID, updated.CustomerID, correlationID, "")
	return dto.NewTransactionResponse(updated), nil
}

// Refund returns money on a captured or settled transaction. The refund
// is a new linked transaction; the parent accumulates the refunded
// amount. Amount defaults to the full refundable amount.
func (s *paymentService) Refund(ctx context.Context, id uuid.UUID, req *dto.RefundRequest, correlationID string) (*dto.TransactionResponse, error) {
	parent, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !parent.CanRefund() {
		return nil, domainErr.NewInvalidTransitionError("transaction", string(parent.Status), "refund")
	}

	amount := parent.RefundableAmount()
	reason := ""
	if req != nil {
		reason = req.Reason
		if req.Amount != "" {
			parsed, parseErr := decimal.NewFromString(req.Amount)
			if parseErr != nil {
				return nil, domainErr.NewInvalidTransactionStateError("invalid refund amount %q", req.Amount)
			}
			amount = parsed
		}
	}
	if !amount.IsPositive() {
		return nil, domainErr.NewInvalidTransactionStateError("refund amount must be positive, got %s", amount)
	}
	if !parent.CanPartialRefund(amount) {
		return nil, domainErr.NewInvalidTransactionStateError(
			"refund amount %s exceeds refundable amount %s", amount, parent.RefundableAmount())
	}

	refund := &model.Transaction{
		ID:                  uuid.New(),
		OrderID:             parent.OrderID,
		CustomerID:          parent.CustomerID,
		CustomerEmail:       parent.CustomerEmail,
		Type:                model.TransactionTypeRefund,
		Status:              model.TransactionStatusPending,
		Amount:              amount,
		Currency:            parent.Currency,
		RefundedAmount:      decimal.Zero,
		CardLastFour:        parent.CardLastFour,
		CardBrand:           parent.CardBrand,
		ParentTransactionID: &parent.ID,
		CorrelationID:       correlationID,
		Description:         reason,
	}
	if req != nil && req.IdempotencyKey != "" {
		refund.IdempotencyKey = &req.IdempotencyKey
	}
	if err := s.txRepo.Create(ctx, refund); err != nil {
		return nil, err
	}

	result, err := s.callGateway(ctx, "REFUND", func(ctx context.Context) (*gateway.Result, error) {
		return s.gw.Refund(ctx, derefString(parent.GatewayTransactionID), amount, parent.CardLastFour)
	})
	if err != nil {
		return s.failTransaction(ctx, refund, "REFUND", err)
	}
	if !result.Success {
		return s.declineTransaction(ctx, refund, "REFUND", result)
	}

	if applyErr := refund.ApplyAuthorized(result.TransactionID, result.AuthCode); applyErr != nil {
		return nil, applyErr
	}
	if applyErr := refund.ApplyCaptured(amount); applyErr != nil {
		return nil, applyErr
	}
	if err := s.txRepo.Update(ctx, refund); err != nil {
		return nil, err
	}

	if _, err := s.updateWithRetry(ctx, parent.ID, func(tx *model.Transaction) error {
		return tx.ApplyRefund(amount)
	}); err != nil {
		// the money moved; the parent will catch up when the gateway's
		// refund webhook reconciles
		s.logger.Error("refund succeeded but parent update failed",
			zap.String("parent_transaction_id", parent.ID.String()),
			zap.String("refund_transaction_id", refund.ID.String()),
			zap.Error(err))
	}
	s.invalidate(ctx, parent.ID)
	s.invalidate(ctx, refund.ID)
	s.metrics.TransactionsTotal.WithLabelValues("REFUND", metrics.OutcomeSuccess).Inc()
	s.audit.Record("REFUND", true, "transaction", &refund.ID, refund.CustomerID, correlationID,
		fmt.Sprintf("refunded %s %s of %s", amount, refund.Currency, parent.ID))
	return dto.NewTransactionResponse(refund), nil
}

// GetTransaction reads through the response cache
func (s *paymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error) {
	cacheKey := transactionCachePrefix + id.String()
	if cached, _ := s.cache.Get(ctx, cacheKey); cached != nil {
		var resp dto.TransactionResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
	}

	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewTransactionResponse(tx)
	if body, err := json.Marshal(resp); err == nil {
		_ = s.cache.Set(ctx, cacheKey, body, s.cacheTTL)
	}
	return resp, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*dto.TransactionResponse, int64, error) {
	txs, total, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]*dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, dto.NewTransactionResponse(tx))
	}
	return responses, total, nil
}

func (s *paymentService) callGateway(ctx context.Context, operation string, call func(ctx context.Context) (*gateway.Result, error)) (*gateway.Result, error) {
	start := time.Now()
	result, err := withRetry(ctx, s.logger, s.retry, operation, call)
	s.metrics.GatewayRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	return result, err
}

// failTransaction marks the transaction FAILED after an exhausted or
// terminal gateway error and propagates the error
func (s *paymentService) failTransaction(ctx context.Context, tx *model.Transaction, operation string, gwErr error) (*dto.TransactionResponse, error) {
	code := "GATEWAY_ERROR"
	var g *domainErr.GatewayError
	if errors.As(gwErr, &g) && g.Code != "" {
		code = g.Code
	}
	if applyErr := tx.ApplyFailed(code, gwErr.Error()); applyErr == nil {
		if err := s.txRepo.Update(ctx, tx); err != nil {
			s.logger.Error("failed to persist failed transaction",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
		}
		s.invalidate(ctx, tx.ID)
	}
	s.metrics.TransactionsTotal.WithLabelValues(operation, metrics.OutcomeFailed).Inc()
	s.audit.Record(operation, false, "transaction", &tx.ID, tx.CustomerID, tx.CorrelationID, gwErr.Error())
	s.logger.Error("gateway operation failed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("operation", operation),
		zap.Error(gwErr))
	return nil, gwErr
}

// declineTransaction records a definitive gateway decline and returns
// the declined transaction to the caller
func (s *paymentService) declineTransaction(ctx context.Context, tx *model.Transaction, operation string, result *gateway.Result) (*dto.TransactionResponse, error) {
	s.applyGatewayFields(tx, result)
	if applyErr := tx.ApplyDeclined(result.ErrorCode, result.ErrorMessage); applyErr != nil {
		return nil, applyErr
	}
	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tx.ID)
	s.metrics.TransactionsTotal.WithLabelValues(operation, metrics.OutcomeDeclined).Inc()
	s.audit.Record(operation, false, "transaction", &tx.ID, tx.CustomerID, tx.CorrelationID, result.ErrorMessage)
	s.logger.Warn("charge declined",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("error_code", result.ErrorCode),
		zap.String("error_message", result.ErrorMessage))
	return dto.NewTransactionResponse(tx), nil
}

func (s *paymentService) applyGatewayFields(tx *model.Transaction, result *gateway.Result) {
	if result.TransactionID != "" {
		tx.GatewayTransactionID = &result.TransactionID
	}
	if result.AVSResult != "" {
		tx.GatewayAVSResult = &result.AVSResult
	}
	if result.CVVResult != "" {
		tx.GatewayCVVResult = &result.CVVResult
	}
	if result.ResponseCode != "" {
		tx.GatewayResponseCode = &result.ResponseCode
	}
	if result.ResponseMessage != "" {
		tx.GatewayResponseMessage = &result.ResponseMessage
	}
}

// updateWithRetry re-reads and re-validates after each lost optimistic
// locking race, bounded by maxConcurrencyRetries
func (s *paymentService) updateWithRetry(ctx context.Context, id uuid.UUID, apply func(*model.Transaction) error) (*model.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxConcurrencyRetries; attempt++ {
		tx, err := s.txRepo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := apply(tx); err != nil {
			return nil, err
		}
		err = s.txRepo.Update(ctx, tx)
		if err == nil {
			return tx, nil
		}
		var conflict *domainErr.ConcurrentModificationError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("optimistic lock conflict, retrying",
			zap.String("transaction_id", id.String()),
			zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

func (s *paymentService) invalidate(ctx context.Context, id uuid.UUID) {
	_ = s.cache.Delete(ctx, transactionCachePrefix+id.String())
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
