package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/dto"
	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/queue"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

// HeaderWebhookSignature carries the gateway's HMAC of the raw body
const HeaderWebhookSignature = "X-ANET-Signature"

// webhookNotification is the gateway's wire format
type webhookNotification struct {
	NotificationID string `json:"notificationId"`
	EventType      string `json:"eventType"`
	EventDate      string `json:"eventDate"`
	Payload        struct {
		ID string `json:"id"`
	} `json:"payload"`
}

// WebhookHandler ingests gateway notifications: it validates the
// signature, stores the event durably, and hands a reference to the
// broker. Reconciliation happens asynchronously in the consumer.
type WebhookHandler struct {
	eventRepo repository.WebhookEventRepository
	gw        gateway.Client
	queue     queue.Queue
	logger    *zap.Logger
}

// NewWebhookHandler creates the webhook intake handler
func NewWebhookHandler(eventRepo repository.WebhookEventRepository, gw gateway.Client, q queue.Queue, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{eventRepo: eventRepo, gw: gw, queue: q, logger: logger}
}

// Register mounts the webhook route on the group
func (h *WebhookHandler) Register(g *echo.Group) {
	g.POST("/webhooks/gateway", h.Receive)
}

// Receive handles one gateway notification. Duplicate notifications
// answer 200 so the gateway stops redelivering; publishing is repeated
// for duplicates because the consumer is idempotent.
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "failed to read request body"})
	}

	signature := c.Request().Header.Get(HeaderWebhookSignature)
	if !h.gw.ValidateWebhookSignature(body, signature) {
		h.logger.Warn("webhook signature validation failed",
			zap.String("remote_addr", c.Request().RemoteAddr))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Code: "INVALID_SIGNATURE", Message: "signature validation failed"})
	}

	var notification webhookNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "malformed notification"})
	}
	if notification.NotificationID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_BODY", Message: "notificationId is required"})
	}

	eventType := model.MapVendorEventType(notification.EventType)
	event := &model.WebhookEvent{
		ExternalEventID: notification.NotificationID,
		EventType:       eventType,
		RawEventType:    notification.EventType,
		Payload:         body,
		Status:          model.WebhookStatusReceived,
		EventTimestamp:  parseEventDate(notification.EventDate),
	}
	if notification.Payload.ID != "" {
		if strings.Contains(notification.EventType, ".subscription.") {
			event.GatewaySubscriptionID = &notification.Payload.ID
		} else {
			event.GatewayTransactionID = &notification.Payload.ID
		}
	}

	inserted, err := h.eventRepo.InsertIfAbsent(c.Request().Context(), event)
	if err != nil {
		return writeError(c, err)
	}
	if !inserted {
		existing, findErr := h.eventRepo.FindByExternalID(c.Request().Context(), notification.NotificationID)
		if findErr == nil {
			event = existing
		}
		h.logger.Info("duplicate webhook notification",
			zap.String("external_event_id", notification.NotificationID),
			zap.String("event_type", notification.EventType))
	}

	envelope, _ := json.Marshal(usecase.WebhookEnvelope{EventID: event.ID})
	if err := h.queue.Publish(c.Request().Context(), event.ExternalEventID, envelope); err != nil {
		// the event row is durable; the gateway will redeliver and the
		// duplicate path republishes
		h.logger.Error("failed to publish webhook envelope",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "PUBLISH_FAILED", Message: "failed to enqueue event"})
	}

	h.logger.Info("webhook accepted",
		zap.String("external_event_id", event.ExternalEventID),
		zap.String("event_type", string(eventType)),
		zap.Bool("duplicate", !inserted))
	return c.JSON(http.StatusOK, dto.WebhookAckResponse{
		EventID:   event.ID.String(),
		Duplicate: !inserted,
	})
}

func parseEventDate(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Now()
}
