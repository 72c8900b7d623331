package dto

// CardRequest carries raw card data on payment requests. It is forwarded
// to the gateway and never stored; responses only ever echo the brand
// and last four digits.
type CardRequest struct {
	Number      string `json:"number" validate:"required,numeric,min=12,max=19"`
	ExpiryMonth string `json:"expiry_month" validate:"required,len=2"`
	ExpiryYear  string `json:"expiry_year" validate:"required,len=4"`
	CVV         string `json:"cvv" validate:"required,numeric,min=3,max=4"`
}

// PaymentRequest creates a purchase or authorization. IdempotencyKey is
// carried from the request header, not the JSON body.
type PaymentRequest struct {
	OrderID        string      `json:"order_id" validate:"required,max=100"`
	CustomerID     string      `json:"customer_id" validate:"required,max=100"`
	CustomerEmail  string      `json:"customer_email" validate:"omitempty,email"`
	Amount         string      `json:"amount" validate:"required"`
	Currency       string      `json:"currency" validate:"required,len=3"`
	Card           CardRequest `json:"card" validate:"required"`
	Description    string      `json:"description" validate:"max=500"`
	IdempotencyKey string      `json:"-"`
}

// CaptureRequest captures a prior authorization. Amount is optional and
// defaults to the full authorized amount.
type CaptureRequest struct {
	Amount string `json:"amount" validate:"omitempty"`
}

// RefundRequest refunds part or all of a captured transaction. Amount is
// optional and defaults to the full refundable amount.
type RefundRequest struct {
	Amount         string `json:"amount" validate:"omitempty"`
	Reason         string `json:"reason" validate:"max=500"`
	IdempotencyKey string `json:"-"`
}
