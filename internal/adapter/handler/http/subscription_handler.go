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

// SubscriptionHandler exposes the subscription endpoints
type SubscriptionHandler struct {
	subscriptions usecase.SubscriptionService
	idempotency   usecase.IdempotencyService
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewSubscriptionHandler creates the subscription HTTP handler
func NewSubscriptionHandler(subscriptions usecase.SubscriptionService, idempotency usecase.IdempotencyService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		idempotency:   idempotency,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Register mounts the subscription routes on the group
func (h *SubscriptionHandler) Register(g *echo.Group) {
	g.POST("/subscriptions", h.Create)
	g.GET("/subscriptions/:id", h.Get)
	g.GET("/subscriptions", h.List)
	g.PUT("/subscriptions/:id", h.Update)
	g.DELETE("/subscriptions/:id", h.Cancel)
}

// Create registers a recurring billing agreement
func (h *SubscriptionHandler) Create(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "failed to read request body"})
	}
	var req dto.SubscriptionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed JSON"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	}
	req.IdempotencyKey = c.Request().Header.Get(HeaderIdempotencyKey)

	corrID := correlationID(c)
	return idempotent(c, h.idempotency, h.logger, body, func(ctx context.Context) (int, interface{}, error) {
		resp, err := h.subscriptions.Create(ctx, &req, corrID)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, resp, nil
	})
}

// Get returns one subscription
func (h *SubscriptionHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "subscription id must be a UUID"})
	}

	resp, err := h.subscriptions.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// List returns subscriptions matching the query filters
func (h *SubscriptionHandler) List(c echo.Context) error {
	filter := repository.SubscriptionFilter{
		CustomerID: c.QueryParam("customer_id"),
		Status:     model.SubscriptionStatus(c.QueryParam("status")),
	}
	filter.Limit = intQueryParam(c, "limit", 20)
	filter.Offset = intQueryParam(c, "offset", 0)

	items, total, err := h.subscriptions.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ListResponse{Items: items, Total: total})
}

// Update applies the provided fields to an updatable subscription
func (h *SubscriptionHandler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "subscription id must be a UUID"})
	}
	var req dto.SubscriptionUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed JSON"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "VALIDATION_FAILED", Message: err.Error()})
	}

	resp, err := h.subscriptions.Update(c.Request().Context(), id, &req, correlationID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel stops future billing
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_ID", Message: "subscription id must be a UUID"})
	}
	var req dto.SubscriptionCancelRequest
	if err := c.Bind(&req); err != nil {
		// DELETE bodies are optional
		req = dto.SubscriptionCancelRequest{}
	}

	resp, err := h.subscriptions.Cancel(c.Request().Context(), id, &req, correlationID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
