// Package gateway defines the port to the external card processor.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Card carries raw card data for a gateway call. It is never persisted.
type Card struct {
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	CVV         string
}

// SubscriptionSchedule describes a recurring billing plan for the gateway
type SubscriptionSchedule struct {
	Amount        decimal.Decimal
	Currency      string
	IntervalUnit  string
	IntervalCount int
	TotalCycles   int
	TrialDays     int
	StartDate     string
}

// Result is the normalized outcome of a gateway call. Success false with
// a nil error means the gateway answered with a decline.
type Result struct {
	Success         bool
	TransactionID   string
	SubscriptionID  string
	AuthCode        string
	AVSResult       string
	CVVResult       string
	ResponseCode    string
	ResponseMessage string
	ErrorCode       string
	ErrorMessage    string
}

// Client is the payment gateway port. Implementations classify failures:
// network faults, timeouts and 5xx answers surface as transient
// GatewayError values suitable for retry, while declines and validation
// rejections come back as unsuccessful Results or terminal errors.
type Client interface {
	Authorize(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card Card) (*Result, error)
	Purchase(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card Card) (*Result, error)
	Capture(ctx context.Context, gatewayTxID string, amount decimal.Decimal) (*Result, error)
	Void(ctx context.Context, gatewayTxID string) (*Result, error)
	Refund(ctx context.Context, gatewayTxID string, amount decimal.Decimal, cardLastFour string) (*Result, error)

	CreateSubscription(ctx context.Context, planName string, schedule SubscriptionSchedule, card Card) (*Result, error)
	UpdateSubscription(ctx context.Context, gatewaySubID string, amount decimal.Decimal, card *Card) (*Result, error)
	CancelSubscription(ctx context.Context, gatewaySubID string) (*Result, error)

	// ValidateWebhookSignature checks the HMAC signature header against the
	// raw request body. Validation passes unconditionally when no signature
	// key is configured.
	ValidateWebhookSignature(body []byte, signatureHeader string) bool
}
