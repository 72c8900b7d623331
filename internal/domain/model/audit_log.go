package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit action suffixes
const (
	AuditOutcomeSuccess = "_SUCCESS"
	AuditOutcomeFailed  = "_FAILED"
)

// AuditLog is an append-only record of one payment operation attempt.
// Audit writes never fail the guarded operation.
type AuditLog struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Action        string     `gorm:"not null;size:100;index" json:"action"`
	EntityType    string     `gorm:"not null;size:50" json:"entity_type"`
	EntityID      *uuid.UUID `gorm:"type:uuid;index" json:"entity_id,omitempty"`
	CustomerID    string     `gorm:"size:100;index" json:"customer_id,omitempty"`
	CorrelationID string     `gorm:"size:100;index" json:"correlation_id,omitempty"`
	Detail        string     `gorm:"size:2000" json:"detail,omitempty"`
	CreatedAt     time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditAction builds the canonical "<OPERATION>_SUCCESS" or
// "<OPERATION>_FAILED" action name from an explicit outcome.
func AuditAction(operation string, succeeded bool) string {
	if succeeded {
		return operation + AuditOutcomeSuccess
	}
	return operation + AuditOutcomeFailed
}
