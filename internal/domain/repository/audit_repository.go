package repository

import (
	"context"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// AuditLogRepository appends audit records
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
}
