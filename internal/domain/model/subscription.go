package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
)

// SubscriptionStatus represents the state of a recurring billing agreement
type SubscriptionStatus string

const (
	SubscriptionStatusPending    SubscriptionStatus = "PENDING"
	SubscriptionStatusTrial      SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive     SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended  SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusCanceled   SubscriptionStatus = "CANCELED"
	SubscriptionStatusExpired    SubscriptionStatus = "EXPIRED"
	SubscriptionStatusTerminated SubscriptionStatus = "TERMINATED"
	SubscriptionStatusFailed     SubscriptionStatus = "FAILED"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether the subscription can never bill again
func (s SubscriptionStatus) IsTerminal() bool {
	switch s {
	case SubscriptionStatusCanceled, SubscriptionStatusExpired,
		SubscriptionStatusTerminated, SubscriptionStatusFailed:
		return true
	}
	return false
}

// BillingInterval represents the unit a billing cycle is measured in
type BillingInterval string

const (
	BillingIntervalDaily   BillingInterval = "DAILY"
	BillingIntervalWeekly  BillingInterval = "WEEKLY"
	BillingIntervalMonthly BillingInterval = "MONTHLY"
	BillingIntervalYearly  BillingInterval = "YEARLY"
)

// Scan implements sql.Scanner interface
func (b *BillingInterval) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*b = BillingInterval(v)
	case []byte:
		*b = BillingInterval(v)
	}
	return nil
}

// Value implements driver.Valuer interface
func (b BillingInterval) Value() (driver.Value, error) {
	return string(b), nil
}

// Subscription represents a recurring billing agreement registered with
// the gateway. TotalCycles of zero means the subscription bills until
// canceled.
type Subscription struct {
	ID                    uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID            string             `gorm:"column:customer_id;not null;size:100;index" json:"customer_id"`
	CustomerEmail         string             `gorm:"size:255" json:"customer_email,omitempty"`
	PlanName              string             `gorm:"not null;size:200" json:"plan_name"`
	Status                SubscriptionStatus `gorm:"not null;size:30;index" json:"status"`
	Amount                decimal.Decimal    `gorm:"type:decimal(19,4);not null" json:"amount"`
	Currency              string             `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Interval              BillingInterval    `gorm:"column:billing_interval;not null;size:20" json:"interval"`
	IntervalCount         int                `gorm:"not null;default:1" json:"interval_count"`
	TotalCycles           int                `gorm:"not null;default:0" json:"total_cycles"`
	CompletedCycles       int                `gorm:"not null;default:0" json:"completed_cycles"`
	FailedAttempts        int                `gorm:"not null;default:0" json:"failed_attempts"`
	TrialDays             int                `gorm:"not null;default:0" json:"trial_days"`
	GatewaySubscriptionID *string            `gorm:"column:gateway_subscription_id;size:100;index" json:"gateway_subscription_id,omitempty"`
	CardLastFour          string             `gorm:"column:card_last_four;size:4" json:"card_last_four,omitempty"`
	CardBrand             string             `gorm:"size:30" json:"card_brand,omitempty"`
	IdempotencyKey        *string            `gorm:"uniqueIndex;size:100" json:"idempotency_key,omitempty"`
	CorrelationID         string             `gorm:"size:100" json:"correlation_id,omitempty"`
	StartDate             time.Time          `gorm:"not null" json:"start_date"`
	NextBillingDate       *time.Time         `json:"next_billing_date,omitempty"`
	CanceledAt            *time.Time         `json:"canceled_at,omitempty"`
	CancelReason          string             `gorm:"size:500" json:"cancel_reason,omitempty"`
	Version               int64              `gorm:"not null;default:0" json:"-"`
	CreatedAt             time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt             time.Time          `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// CanUpdate reports whether amount or schedule changes are allowed.
// Suspended subscriptions stay updatable so a failing card can be
// replaced before reactivation.
func (s *Subscription) CanUpdate() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusSuspended
}

// CanCancel reports whether the subscription may still be canceled
func (s *Subscription) CanCancel() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusSuspended, SubscriptionStatusTrial:
		return true
	}
	return false
}

// CanReactivate reports whether a suspended subscription can resume billing
func (s *Subscription) CanReactivate() bool {
	return s.Status == SubscriptionStatusSuspended
}

// RemainingCycles returns how many billing cycles are left, or -1 when
// the subscription bills indefinitely.
func (s *Subscription) RemainingCycles() int {
	if s.TotalCycles == 0 {
		return -1
	}
	remaining := s.TotalCycles - s.CompletedCycles
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Activate moves a pending subscription into TRIAL or ACTIVE once the
// gateway accepts it. With a trial period the first real billing date is
// deferred past the trial; otherwise the first cycle bills on the start
// date itself.
func (s *Subscription) Activate(gatewaySubID string) error {
	if s.Status != SubscriptionStatusPending {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "activate")
	}
	s.GatewaySubscriptionID = &gatewaySubID
	if s.TrialDays > 0 {
		s.Status = SubscriptionStatusTrial
		next := s.StartDate.AddDate(0, 0, s.TrialDays)
		s.NextBillingDate = &next
	} else {
		s.Status = SubscriptionStatusActive
		next := s.StartDate
		s.NextBillingDate = &next
	}
	return nil
}

// Cancel stops all future billing. Cancel is idempotent on already
// canceled subscriptions only at the service layer; here a terminal
// state rejects the transition.
func (s *Subscription) Cancel(reason string) error {
	if !s.CanCancel() {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "cancel")
	}
	now := time.Now()
	s.Status = SubscriptionStatusCanceled
	s.CanceledAt = &now
	s.CancelReason = reason
	s.NextBillingDate = nil
	return nil
}

// ApplySuspended pauses billing after repeated payment failures
func (s *Subscription) ApplySuspended() error {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusTrial {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "suspend")
	}
	s.Status = SubscriptionStatusSuspended
	return nil
}

// ApplyReactivated resumes billing on a suspended subscription
func (s *Subscription) ApplyReactivated() error {
	if !s.CanReactivate() {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "reactivate")
	}
	s.Status = SubscriptionStatusActive
	s.FailedAttempts = 0
	next := NextBillingDate(time.Now(), s.Interval, s.IntervalCount)
	s.NextBillingDate = &next
	return nil
}

// ApplyTerminated ends the subscription by gateway decision
func (s *Subscription) ApplyTerminated() error {
	if s.Status.IsTerminal() {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "terminate")
	}
	s.Status = SubscriptionStatusTerminated
	s.NextBillingDate = nil
	return nil
}

// ApplyExpired marks a subscription whose cycles are all complete
func (s *Subscription) ApplyExpired() error {
	if s.Status.IsTerminal() {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "expire")
	}
	s.Status = SubscriptionStatusExpired
	s.NextBillingDate = nil
	return nil
}

// ApplyFailed marks a subscription the gateway could not keep billing
func (s *Subscription) ApplyFailed() error {
	if s.Status.IsTerminal() {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "fail")
	}
	s.Status = SubscriptionStatusFailed
	s.NextBillingDate = nil
	return nil
}

// RecordCycle advances the subscription by one successful billing cycle.
// A trial subscription becomes active on its first paid cycle. When the
// final cycle completes the subscription expires.
func (s *Subscription) RecordCycle(billedAt time.Time) error {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusTrial {
		return domainErr.NewInvalidTransitionError("subscription", string(s.Status), "record_cycle")
	}
	if s.Status == SubscriptionStatusTrial {
		s.Status = SubscriptionStatusActive
	}
	s.CompletedCycles++
	s.FailedAttempts = 0
	if s.TotalCycles > 0 && s.CompletedCycles >= s.TotalCycles {
		return s.ApplyExpired()
	}
	next := NextBillingDate(billedAt, s.Interval, s.IntervalCount)
	s.NextBillingDate = &next
	return nil
}

// RecordFailedAttempt counts a failed billing attempt without changing
// status; suspension after repeated failures is a service-layer policy.
func (s *Subscription) RecordFailedAttempt() {
	s.FailedAttempts++
}

// NextBillingDate computes the next billing date one interval past from.
// Calendar months and years use calendar arithmetic, so Jan 31 monthly
// rolls to Mar 2/3 the way time.AddDate normalizes overflow.
func NextBillingDate(from time.Time, interval BillingInterval, count int) time.Time {
	if count <= 0 {
		count = 1
	}
	switch interval {
	case BillingIntervalDaily:
		return from.AddDate(0, 0, count)
	case BillingIntervalWeekly:
		return from.AddDate(0, 0, 7*count)
	case BillingIntervalMonthly:
		return from.AddDate(0, count, 0)
	case BillingIntervalYearly:
		return from.AddDate(count, 0, 0)
	default:
		return from.AddDate(0, count, 0)
	}
}
