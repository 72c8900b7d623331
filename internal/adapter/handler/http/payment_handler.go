package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/dto"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

// request headers
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderCorrelationID  = "X-Correlation-ID"
)

// PaymentHandler exposes the transaction endpoints
type PaymentHandler struct {
	payments    usecase.PaymentService
	idempotency usecase.IdempotencyService
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewPaymentHandler creates the payment HTTP handler
func NewPaymentHandler(payments usecase.PaymentService, idempotency usecase.IdempotencyService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		idempotency: idempotency,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Register mounts the payment routes on the group
func (h *PaymentHandler) Register(g *echo.Group) {
	g.POST("/payments/purchase", h.Purchase)
	g.POST("/payments/authorize", h.Authorize)
	g.POST("/payments/:id/capture", h.Capture)
	g.POST("/payments/:id/void", h.Void)
	g.POST("/payments/:id/refund", h.Refund)
	g.GET("/payments/:id", h.Get)
	g.GET("/payments", h.List)
}

// Purchase authorizes and captures in one step
func (h *PaymentHandler) Purchase(c echo.Context) error {
	return h.charge(c, h.payments.Purchase)
}

// Authorize places a hold for later capture
func (h *PaymentHandler) Authorize(c echo.Context) error {
	return h.charge(c, h.payments.Authorize)
}

func (h *PaymentHandler) charge(c echo.Context, op func(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error)) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "failed to read request body"})
	}
	var req dto.PaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed JSON"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	}
	req.IdempotencyKey = c.Request().Header.Get(HeaderIdempotencyKey)

	corrID := correlationID(c)
	return idempotent(c, h.idempotency, h.logger, body, func(ctx context.Context) (int, interface{}, error) {
		resp, err := op(ctx, &req, corrID)
		if err != nil {
			return 0, nil, err
		}
		status := http.StatusCreated
		if resp.Status == string(model.TransactionStatusDeclined) {
			status = http.StatusPaymentRequired
		}
		return status, resp, nil
	})
}

// Capture settles a prior authorization
func (h *PaymentHandler) Capture(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "transaction id must be a UUID"})
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "failed to read request body"})
	}
	var req dto.CaptureRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed JSON"})
		}
	}

	corrID := correlationID(c)
	return idempotent(c, h.idempotency, h.logger, body, func(ctx context.Context) (int, interface{}, error) {
		resp, err := h.payments.Capture(ctx, id, &req, corrID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, resp, nil
	})
}

// Void cancels an authorization or unsettled capture
func (h *PaymentHandler) Void(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "transaction id must be a UUID"})
	}

	corrID := correlationID(c)
	return idempotent(c, h.idempotency, h.logger, nil, func(ctx context.Context) (int, interface{}, error) {
		resp, err := h.payments.Void(ctx, id, corrID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, resp, nil
	})
}

// Refund returns money on a captured transaction
func (h *PaymentHandler) Refund(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "transaction id must be a UUID"})
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "failed to read request body"})
	}
	var req dto.RefundRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed JSON"})
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	}
	req.IdempotencyKey = c.Request().Header.Get(HeaderIdempotencyKey)

	corrID := correlationID(c)
	return idempotent(c, h.idempotency, h.logger, body, func(ctx context.Context) (int, interface{}, error) {
		resp, err := h.payments.Refund(ctx, id, &req, corrID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, resp, nil
	})
}

// Get returns one transaction
func (h *PaymentHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "transaction id must be a UUID"})
	}

	resp, err := h.payments.GetTransaction(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// List returns transactions matching the query filters
func (h *PaymentHandler) List(c echo.Context) error {
	filter := repository.TransactionFilter{
		CustomerID: c.QueryParam("customer_id"),
		OrderID:    c.QueryParam("order_id"),
		Status:     model.TransactionStatus(c.QueryParam("status")),
		Type:       model.TransactionType(c.QueryParam("type")),
	}
	filter.Limit = intQueryParam(c, "limit", 20)
	filter.Offset = intQueryParam(c, "offset", 0)

	items, total, err := h.payments.ListTransactions(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ListResponse{Items: items, Total: total})
}
