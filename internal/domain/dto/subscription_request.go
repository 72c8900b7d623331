package dto

// SubscriptionRequest creates a recurring billing agreement.
// IdempotencyKey is carried from the request header, not the JSON body.
type SubscriptionRequest struct {
	CustomerID     string      `json:"customer_id" validate:"required,max=100"`
	CustomerEmail  string      `json:"customer_email" validate:"omitempty,email"`
	PlanName       string      `json:"plan_name" validate:"required,max=200"`
	Amount         string      `json:"amount" validate:"required"`
	Currency       string      `json:"currency" validate:"required,len=3"`
	Interval       string      `json:"interval" validate:"required,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	IntervalCount  int         `json:"interval_count" validate:"omitempty,min=1"`
	TotalCycles    int         `json:"total_cycles" validate:"omitempty,min=0"`
	TrialDays      int         `json:"trial_days" validate:"omitempty,min=0"`
	StartDate      string      `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Card           CardRequest `json:"card" validate:"required"`
	IdempotencyKey string      `json:"-"`
}

// SubscriptionUpdateRequest changes fields on an updatable
// subscription. Every field is optional and absent fields are left
// untouched, but at least one must be present. TotalCycles is a pointer
// so an explicit zero (bill until canceled) can be told apart from
// absent.
type SubscriptionUpdateRequest struct {
	PlanName      string       `json:"plan_name" validate:"omitempty,max=200"`
	Amount        string       `json:"amount" validate:"omitempty"`
	Interval      string       `json:"interval" validate:"omitempty,oneof=DAILY WEEKLY MONTHLY YEARLY"`
	IntervalCount int          `json:"interval_count" validate:"omitempty,min=1"`
	TotalCycles   *int         `json:"total_cycles" validate:"omitempty"`
	Card          *CardRequest `json:"card" validate:"omitempty"`
}

// Empty reports whether the update carries no field at all
func (r *SubscriptionUpdateRequest) Empty() bool {
	return r.PlanName == "" && r.Amount == "" && r.Interval == "" &&
		r.IntervalCount == 0 && r.TotalCycles == nil && r.Card == nil
}

// SubscriptionCancelRequest carries an optional cancellation reason
type SubscriptionCancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
