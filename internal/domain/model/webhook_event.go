package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

// WebhookEventType represents a normalized gateway notification kind
type WebhookEventType string

const (
	WebhookEventPaymentAuthorized      WebhookEventType = "PAYMENT_AUTHORIZED"
	WebhookEventPaymentCaptured        WebhookEventType = "PAYMENT_CAPTURED"
	WebhookEventPaymentSettled         WebhookEventType = "PAYMENT_SETTLED"
	WebhookEventPaymentVoided          WebhookEventType = "PAYMENT_VOIDED"
	WebhookEventPaymentRefunded        WebhookEventType = "PAYMENT_REFUNDED"
	WebhookEventPaymentDeclined        WebhookEventType = "PAYMENT_DECLINED"
	WebhookEventFraudHeld              WebhookEventType = "FRAUD_HELD"
	WebhookEventFraudApproved          WebhookEventType = "FRAUD_APPROVED"
	WebhookEventFraudDeclined          WebhookEventType = "FRAUD_DECLINED"
	WebhookEventSubscriptionSuspended  WebhookEventType = "SUBSCRIPTION_SUSPENDED"
	WebhookEventSubscriptionTerminated WebhookEventType = "SUBSCRIPTION_TERMINATED"
	WebhookEventSubscriptionCanceled   WebhookEventType = "SUBSCRIPTION_CANCELED"
	WebhookEventSubscriptionExpiring   WebhookEventType = "SUBSCRIPTION_EXPIRING"
	WebhookEventUnknown                WebhookEventType = "UNKNOWN"
)

// Scan implements sql.Scanner interface
func (t *WebhookEventType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = WebhookEventType(v)
	case []byte:
		*t = WebhookEventType(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (t WebhookEventType) Value() (driver.Value, error) {
	return string(t), nil
}

// vendor notification names as delivered on the wire
var vendorEventTypes = map[string]WebhookEventType{
	"net.authorize.payment.authorization.created":    WebhookEventPaymentAuthorized,
	"net.authorize.payment.authcapture.created":      WebhookEventPaymentCaptured,
	"net.authorize.payment.capture.created":          WebhookEventPaymentCaptured,
	"net.authorize.payment.priorAuthCapture.created": WebhookEventPaymentCaptured,
	"net.authorize.payment.void.created":             WebhookEventPaymentVoided,
	"net.authorize.payment.refund.created":           WebhookEventPaymentRefunded,
	"net.authorize.payment.fraud.held":               WebhookEventFraudHeld,
	"net.authorize.payment.fraud.approved":           WebhookEventFraudApproved,
	"net.authorize.payment.fraud.declined":           WebhookEventFraudDeclined,
	"net.authorize.customer.subscription.suspended":  WebhookEventSubscriptionSuspended,
	"net.authorize.customer.subscription.terminated": WebhookEventSubscriptionTerminated,
	"net.authorize.customer.subscription.cancelled":  WebhookEventSubscriptionCanceled,
	"net.authorize.customer.subscription.expiring":   WebhookEventSubscriptionExpiring,
}

// MapVendorEventType normalizes a raw gateway notification name.
// Unrecognized names map to UNKNOWN and are stored but not dispatched.
func MapVendorEventType(raw string) WebhookEventType {
	if t, ok := vendorEventTypes[raw]; ok {
		return t
	}
	return WebhookEventUnknown
}

// WebhookProcessingStatus tracks the reconciliation pipeline progress
type WebhookProcessingStatus string

const (
	WebhookStatusReceived   WebhookProcessingStatus = "RECEIVED"
	WebhookStatusProcessing WebhookProcessingStatus = "PROCESSING"
	WebhookStatusProcessed  WebhookProcessingStatus = "PROCESSED"
	WebhookStatusFailed     WebhookProcessingStatus = "FAILED"
	WebhookStatusSkipped    WebhookProcessingStatus = "SKIPPED"
)

// Scan implements sql.Scanner interface
func (s *WebhookProcessingStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = WebhookProcessingStatus(v)
	case []byte:
		*s = WebhookProcessingStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s WebhookProcessingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// WebhookEvent is one gateway notification. ExternalEventID carries the
// gateway's own notification id and is unique, which makes re-delivered
// notifications no-ops at insert time.
type WebhookEvent struct {
	ID                    uuid.UUID               `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalEventID       string                  `gorm:"column:external_event_id;uniqueIndex;not null;size:100" json:"external_event_id"`
	EventType             WebhookEventType        `gorm:"not null;size:50" json:"event_type"`
	RawEventType          string                  `gorm:"size:100" json:"raw_event_type"`
	GatewayTransactionID  *string                 `gorm:"column:gateway_transaction_id;size:100;index" json:"gateway_transaction_id,omitempty"`
	GatewaySubscriptionID *string                 `gorm:"column:gateway_subscription_id;size:100;index" json:"gateway_subscription_id,omitempty"`
	Payload               []byte                  `gorm:"type:jsonb" json:"payload"`
	Status                WebhookProcessingStatus `gorm:"not null;size:20;index" json:"status"`
	ProcessingAttempts    int                     `gorm:"not null;default:0" json:"processing_attempts"`
	FailureReason         string                  `gorm:"size:1000" json:"failure_reason,omitempty"`
	EventTimestamp        time.Time               `json:"event_timestamp"`
	ProcessedAt           *time.Time              `json:"processed_at,omitempty"`
	CreatedAt             time.Time               `gorm:"default:now()" json:"created_at"`
	UpdatedAt             time.Time               `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// MarkProcessed records a successful (or intentionally skipped) outcome
func (e *WebhookEvent) MarkProcessed() {
	now := time.Now()
	e.Status = WebhookStatusProcessed
	e.ProcessedAt = &now
}

// MarkSkipped records an event that was valid but intentionally not
// applied, e.g. stale relative to current transaction state
func (e *WebhookEvent) MarkSkipped(reason string) {
	now := time.Now()
	e.Status = WebhookStatusSkipped
	e.FailureReason = reason
	e.ProcessedAt = &now
}

// MarkFailed records a processing failure bound for the dead letter topic
func (e *WebhookEvent) MarkFailed(reason string) {
	e.Status = WebhookStatusFailed
	e.ProcessingAttempts++
	e.FailureReason = reason
}
