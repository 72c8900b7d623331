package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
)

// TransactionType represents the kind of monetary operation
type TransactionType string

const (
	TransactionTypePurchase  TransactionType = "PURCHASE"
	TransactionTypeAuthorize TransactionType = "AUTHORIZE"
	TransactionTypeCapture   TransactionType = "CAPTURE"
	TransactionTypeVoid      TransactionType = "VOID"
	TransactionTypeRefund    TransactionType = "REFUND"
)

// Scan implements sql.Scanner interface
func (t *TransactionType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*t = TransactionType(v)
	case []byte:
		*t = TransactionType(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (t TransactionType) Value() (driver.Value, error) {
	return string(t), nil
}

// TransactionStatus represents the state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "PENDING"
	TransactionStatusAuthorized        TransactionStatus = "AUTHORIZED"
	TransactionStatusCaptured          TransactionStatus = "CAPTURED"
	TransactionStatusVoided            TransactionStatus = "VOIDED"
	TransactionStatusRefunded          TransactionStatus = "REFUNDED"
	TransactionStatusPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
	TransactionStatusFailed            TransactionStatus = "FAILED"
	TransactionStatusDeclined          TransactionStatus = "DECLINED"
	TransactionStatusExpired           TransactionStatus = "EXPIRED"
	TransactionStatusSettled           TransactionStatus = "SETTLED"
	TransactionStatusPendingReview     TransactionStatus = "PENDING_REVIEW"
)

// Scan implements sql.Scanner interface
func (s *TransactionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = TransactionStatus(v)
	case []byte:
		*s = TransactionStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s TransactionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether no further transitions may leave this status
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusVoided, TransactionStatusRefunded,
		TransactionStatusFailed, TransactionStatusDeclined,
		TransactionStatusExpired:
		return true
	}
	return false
}

// IsFailure reports whether this status represents a failed outcome
func (s TransactionStatus) IsFailure() bool {
	return s == TransactionStatusFailed || s == TransactionStatusDeclined
}

// Transaction represents one monetary operation tied to an order. Status
// moves only through the mutators below; an illegal move returns
// InvalidTransitionError and leaves the entity untouched.
type Transaction struct {
	ID                     uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID                string              `gorm:"column:order_id;not null;size:100;index" json:"order_id"`
	CustomerID             string              `gorm:"column:customer_id;not null;size:100;index" json:"customer_id"`
	CustomerEmail          string              `gorm:"size:255" json:"customer_email,omitempty"`
	Type                   TransactionType     `gorm:"not null;size:30" json:"type"`
	Status                 TransactionStatus   `gorm:"not null;size:30;index" json:"status"`
	Amount                 decimal.Decimal     `gorm:"type:decimal(19,4);not null" json:"amount"`
	Currency               string              `gorm:"size:3;not null;default:'USD'" json:"currency"`
	AuthorizedAmount       decimal.NullDecimal `gorm:"type:decimal(19,4)" json:"authorized_amount,omitempty"`
	CapturedAmount         decimal.NullDecimal `gorm:"type:decimal(19,4)" json:"captured_amount,omitempty"`
	RefundedAmount         decimal.Decimal     `gorm:"type:decimal(19,4);not null;default:0" json:"refunded_amount"`
	GatewayTransactionID   *string             `gorm:"column:gateway_transaction_id;size:100;index" json:"gateway_transaction_id,omitempty"`
	GatewayAuthCode        *string             `gorm:"size:50" json:"gateway_auth_code,omitempty"`
	GatewayAVSResult       *string             `gorm:"column:gateway_avs_result;size:10" json:"gateway_avs_result,omitempty"`
	GatewayCVVResult       *string             `gorm:"column:gateway_cvv_result;size:10" json:"gateway_cvv_result,omitempty"`
	GatewayResponseCode    *string             `gorm:"size:20" json:"gateway_response_code,omitempty"`
	GatewayResponseMessage *string             `gorm:"size:500" json:"gateway_response_message,omitempty"`
	CardLastFour           string              `gorm:"column:card_last_four;size:4" json:"card_last_four,omitempty"`
	CardBrand              string              `gorm:"size:30" json:"card_brand,omitempty"`
	ParentTransactionID    *uuid.UUID          `gorm:"type:uuid" json:"parent_transaction_id,omitempty"`
	SubscriptionID         *uuid.UUID          `gorm:"type:uuid" json:"subscription_id,omitempty"`
	IdempotencyKey         *string             `gorm:"uniqueIndex;size:100" json:"idempotency_key,omitempty"`
	CorrelationID          string              `gorm:"size:100" json:"correlation_id,omitempty"`
	ErrorCode              *string             `gorm:"size:50" json:"error_code,omitempty"`
	ErrorMessage           *string             `gorm:"size:2000" json:"error_message,omitempty"`
	Description            string              `gorm:"size:500" json:"description,omitempty"`
	AuthorizedAt           *time.Time          `json:"authorized_at,omitempty"`
	CapturedAt             *time.Time          `json:"captured_at,omitempty"`
	VoidedAt               *time.Time          `json:"voided_at,omitempty"`
	RefundedAt             *time.Time          `json:"refunded_at,omitempty"`
	FailedAt               *time.Time          `json:"failed_at,omitempty"`
	Version                int64               `gorm:"not null;default:0" json:"-"`
	CreatedAt              time.Time           `gorm:"default:now()" json:"created_at"`
	UpdatedAt              time.Time           `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// CanCapture reports whether a capture command is allowed
func (t *Transaction) CanCapture() bool {
	return t.Status == TransactionStatusAuthorized && t.Type == TransactionTypeAuthorize
}

// CanVoid reports whether a void command is allowed
func (t *Transaction) CanVoid() bool {
	return t.Status == TransactionStatusAuthorized || t.Status == TransactionStatusCaptured
}

// CanRefund reports whether a refund command is allowed
func (t *Transaction) CanRefund() bool {
	return t.Status == TransactionStatusCaptured ||
		t.Status == TransactionStatusSettled ||
		t.Status == TransactionStatusPartiallyRefunded
}

// CanPartialRefund reports whether amount can be refunded right now
func (t *Transaction) CanPartialRefund(amount decimal.Decimal) bool {
	if !t.CanRefund() {
		return false
	}
	return amount.Cmp(t.RefundableAmount()) <= 0
}

// RefundableAmount returns the amount still available for refund:
// (captured amount, or original amount when never captured) minus what
// has already been refunded.
func (t *Transaction) RefundableAmount() decimal.Decimal {
	captured := t.Amount
	if t.CapturedAmount.Valid {
		captured = t.CapturedAmount.Decimal
	}
	return captured.Sub(t.RefundedAmount)
}

// ApplyAuthorized records a successful authorization from the gateway
func (t *Transaction) ApplyAuthorized(gatewayTxID, authCode string) error {
	if t.Status != TransactionStatusPending {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "authorize")
	}
	now := time.Now()
	t.Status = TransactionStatusAuthorized
	t.GatewayTransactionID = &gatewayTxID
	t.GatewayAuthCode = &authCode
	t.AuthorizedAmount = decimal.NewNullDecimal(t.Amount)
	t.AuthorizedAt = &now
	return nil
}

// ApplyCaptured converts an authorization into a settled charge. The
// capture amount may not exceed the authorized amount.
func (t *Transaction) ApplyCaptured(amount decimal.Decimal) error {
	if t.Status != TransactionStatusAuthorized {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "capture")
	}
	if t.AuthorizedAmount.Valid && amount.Cmp(t.AuthorizedAmount.Decimal) > 0 {
		return domainErr.NewInvalidTransactionStateError(
			"capture amount %s exceeds authorized amount %s", amount, t.AuthorizedAmount.Decimal)
	}
	now := time.Now()
	t.Status = TransactionStatusCaptured
	t.CapturedAmount = decimal.NewNullDecimal(amount)
	t.CapturedAt = &now
	return nil
}

// ApplyVoided cancels an authorization or capture before settlement
func (t *Transaction) ApplyVoided() error {
	if !t.CanVoid() {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "void")
	}
	now := time.Now()
	t.Status = TransactionStatusVoided
	t.VoidedAt = &now
	return nil
}

// ApplyRefund accumulates a refunded amount on the captured transaction
// and moves status to REFUNDED or PARTIALLY_REFUNDED.
func (t *Transaction) ApplyRefund(amount decimal.Decimal) error {
	if !t.CanRefund() {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "refund")
	}
	if amount.Cmp(t.RefundableAmount()) > 0 {
		return domainErr.NewInvalidTransactionStateError(
			"refund amount %s exceeds refundable amount %s", amount, t.RefundableAmount())
	}
	now := time.Now()
	t.RefundedAmount = t.RefundedAmount.Add(amount)
	t.RefundedAt = &now

	captured := t.Amount
	if t.CapturedAmount.Valid {
		captured = t.CapturedAmount.Decimal
	}
	if t.RefundedAmount.Cmp(captured) >= 0 {
		t.Status = TransactionStatusRefunded
	} else {
		t.Status = TransactionStatusPartiallyRefunded
	}
	return nil
}

// ApplyFailed records a failure reason; allowed from any non-terminal state
func (t *Transaction) ApplyFailed(code, message string) error {
	if t.Status.IsTerminal() {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "fail")
	}
	now := time.Now()
	t.Status = TransactionStatusFailed
	t.ErrorCode = &code
	t.ErrorMessage = &message
	t.FailedAt = &now
	return nil
}

// ApplyDeclined records a definitive gateway decline; allowed from any
// non-terminal state
func (t *Transaction) ApplyDeclined(code, message string) error {
	if t.Status.IsTerminal() {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "decline")
	}
	now := time.Now()
	t.Status = TransactionStatusDeclined
	t.ErrorCode = &code
	t.ErrorMessage = &message
	t.FailedAt = &now
	return nil
}

// ApplySettled marks a captured charge settled by the gateway batch
func (t *Transaction) ApplySettled() error {
	if t.Status != TransactionStatusCaptured {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "settle")
	}
	t.Status = TransactionStatusSettled
	return nil
}

// ApplyFraudHold places a captured transaction under fraud review
func (t *Transaction) ApplyFraudHold() error {
	if t.Status != TransactionStatusCaptured {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "fraud_hold")
	}
	t.Status = TransactionStatusPendingReview
	return nil
}

// ApplyFraudApprove releases a fraud hold back to captured
func (t *Transaction) ApplyFraudApprove() error {
	if t.Status != TransactionStatusPendingReview {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "fraud_approve")
	}
	t.Status = TransactionStatusCaptured
	return nil
}

// ApplyFraudDecline fails a transaction held for fraud review
func (t *Transaction) ApplyFraudDecline() error {
	if t.Status != TransactionStatusPendingReview {
		return domainErr.NewInvalidTransitionError("transaction", string(t.Status), "fraud_decline")
	}
	return t.ApplyFailed("FRAUD_DECLINED", "transaction declined by fraud review")
}
