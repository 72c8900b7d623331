package dto

import (
	"time"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// TransactionResponse is the API view of a transaction. The capability
// flags tell clients which follow-up operations are currently legal so
// they do not have to mirror the state machine.
type TransactionResponse struct {
	ID                   string     `json:"id"`
	OrderID              string     `json:"order_id"`
	CustomerID           string     `json:"customer_id"`
	Type                 string     `json:"type"`
	Status               string     `json:"status"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	AuthorizedAmount     string     `json:"authorized_amount,omitempty"`
	CapturedAmount       string     `json:"captured_amount,omitempty"`
	RefundedAmount       string     `json:"refunded_amount"`
	RefundableAmount     string     `json:"refundable_amount"`
	GatewayTransactionID string     `json:"gateway_transaction_id,omitempty"`
	AuthCode             string     `json:"auth_code,omitempty"`
	AVSResult            string     `json:"avs_result,omitempty"`
	CVVResult            string     `json:"cvv_result,omitempty"`
	CardLastFour         string     `json:"card_last_four,omitempty"`
	CardBrand            string     `json:"card_brand,omitempty"`
	ParentTransactionID  string     `json:"parent_transaction_id,omitempty"`
	CorrelationID        string     `json:"correlation_id,omitempty"`
	ErrorCode            string     `json:"error_code,omitempty"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	CanCapture           bool       `json:"can_capture"`
	CanVoid              bool       `json:"can_void"`
	CanRefund            bool       `json:"can_refund"`
	CreatedAt            time.Time  `json:"created_at"`
	AuthorizedAt         *time.Time `json:"authorized_at,omitempty"`
	CapturedAt           *time.Time `json:"captured_at,omitempty"`
	VoidedAt             *time.Time `json:"voided_at,omitempty"`
	RefundedAt           *time.Time `json:"refunded_at,omitempty"`
}

// NewTransactionResponse maps a transaction entity to its API view
func NewTransactionResponse(tx *model.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:               tx.ID.String(),
		OrderID:          tx.OrderID,
		CustomerID:       tx.CustomerID,
		Type:             string(tx.Type),
		Status:           string(tx.Status),
		Amount:           tx.Amount.String(),
		Currency:         tx.Currency,
		RefundedAmount:   tx.RefundedAmount.String(),
		RefundableAmount: tx.RefundableAmount().String(),
		CardLastFour:     tx.CardLastFour,
		CardBrand:        tx.CardBrand,
		CorrelationID:    tx.CorrelationID,
		CanCapture:       tx.CanCapture(),
		CanVoid:          tx.CanVoid(),
		CanRefund:        tx.CanRefund(),
		CreatedAt:        tx.CreatedAt,
		AuthorizedAt:     tx.AuthorizedAt,
		CapturedAt:       tx.CapturedAt,
		VoidedAt:         tx.VoidedAt,
		RefundedAt:       tx.RefundedAt,
	}
	if tx.AuthorizedAmount.Valid {
		resp.AuthorizedAmount = tx.AuthorizedAmount.Decimal.String()
	}
	if tx.CapturedAmount.Valid {
		resp.CapturedAmount = tx.CapturedAmount.Decimal.String()
	}
	if tx.GatewayTransactionID != nil {
		resp.GatewayTransactionID = *tx.GatewayTransactionID
	}
	if tx.GatewayAuthCode != nil {
		resp.AuthCode = *tx.GatewayAuthCode
	}
	if tx.GatewayAVSResult != nil {
		resp.AVSResult = *tx.GatewayAVSResult
	}
	if tx.GatewayCVVResult != nil {
		resp.CVVResult = *tx.GatewayCVVResult
	}
	if tx.ParentTransactionID != nil {
		resp.ParentTransactionID = tx.ParentTransactionID.String()
	}
	if tx.ErrorCode != nil {
		resp.ErrorCode = *tx.ErrorCode
	}
	if tx.ErrorMessage != nil {
		resp.ErrorMessage = *tx.ErrorMessage
	}
	return resp
}

// SubscriptionResponse is the API view of a subscription
type SubscriptionResponse struct {
	ID                    string     `json:"id"`
	CustomerID            string     `json:"customer_id"`
	PlanName              string     `json:"plan_name"`
	Status                string     `json:"status"`
	Amount                string     `json:"amount"`
	Currency              string     `json:"currency"`
	Interval              string     `json:"interval"`
	IntervalCount         int        `json:"interval_count"`
	TotalCycles           int        `json:"total_cycles"`
	CompletedCycles       int        `json:"completed_cycles"`
	RemainingCycles       int        `json:"remaining_cycles"`
	TrialDays             int        `json:"trial_days,omitempty"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id,omitempty"`
	CardLastFour          string     `json:"card_last_four,omitempty"`
	CardBrand             string     `json:"card_brand,omitempty"`
	CanUpdate             bool       `json:"can_update"`
	CanCancel             bool       `json:"can_cancel"`
	CanReactivate         bool       `json:"can_reactivate"`
	StartDate             time.Time  `json:"start_date"`
	NextBillingDate       *time.Time `json:"next_billing_date,omitempty"`
	CanceledAt            *time.Time `json:"canceled_at,omitempty"`
	CancelReason          string     `json:"cancel_reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// NewSubscriptionResponse maps a subscription entity to its API view
func NewSubscriptionResponse(sub *model.Subscription) *SubscriptionResponse {
	resp := &SubscriptionResponse{
		ID:              sub.ID.String(),
		CustomerID:      sub.CustomerID,
		PlanName:        sub.PlanName,
		Status:          string(sub.Status),
		Amount:          sub.Amount.String(),
		Currency:        sub.Currency,
		Interval:        string(sub.Interval),
		IntervalCount:   sub.IntervalCount,
		TotalCycles:     sub.TotalCycles,
		CompletedCycles: sub.CompletedCycles,
		RemainingCycles: sub.RemainingCycles(),
		TrialDays:       sub.TrialDays,
		CardLastFour:    sub.CardLastFour,
		CardBrand:       sub.CardBrand,
		CanUpdate:       sub.CanUpdate(),
		CanCancel:       sub.CanCancel(),
		CanReactivate:   sub.CanReactivate(),
		StartDate:       sub.StartDate,
		NextBillingDate: sub.NextBillingDate,
		CanceledAt:      sub.CanceledAt,
		CancelReason:    sub.CancelReason,
		CreatedAt:       sub.CreatedAt,
	}
	if sub.GatewaySubscriptionID != nil {
		resp.GatewaySubscriptionID = *sub.GatewaySubscriptionID
	}
	return resp
}

// ListResponse wraps paged collections
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

// WebhookAckResponse acknowledges a webhook intake
type WebhookAckResponse struct {
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}
