package model

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyStatus tracks whether the guarded request is still running
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "PROCESSING"
	IdempotencyStatusCompleted  IdempotencyStatus = "COMPLETED"
)

// IdempotencyRecord pins a client-supplied key to one request execution.
// The unique key column is the at-most-once guarantee: the row is
// claimed with an insert-if-absent, and the stored response replays for
// any duplicate that arrives before ExpiresAt.
type IdempotencyRecord struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Key                string            `gorm:"column:idempotency_key;uniqueIndex;not null;size:100" json:"key"`
	RequestFingerprint string            `gorm:"not null;size:64" json:"request_fingerprint"`
	Status             IdempotencyStatus `gorm:"not null;size:20" json:"status"`
	ResponseStatusCode int               `json:"response_status_code,omitempty"`
	ResponseBody       []byte            `gorm:"type:bytea" json:"-"`
	TransactionID      *uuid.UUID        `gorm:"type:uuid" json:"transaction_id,omitempty"`
	ExpiresAt          time.Time         `gorm:"not null;index" json:"expires_at"`
	CreatedAt          time.Time         `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// IsExpired reports whether the record is past its replay window
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// MatchesFingerprint reports whether a duplicate request carries the
// same method, path and body as the original
func (r *IdempotencyRecord) MatchesFingerprint(fingerprint string) bool {
	return r.RequestFingerprint == fingerprint
}
