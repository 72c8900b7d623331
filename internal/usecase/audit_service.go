package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

// AuditService records operation attempts. Record is fire-and-forget:
// audit failures are logged but never fail the guarded operation.
type AuditService interface {
	Record(operation string, succeeded bool, entityType string, entityID *uuid.UUID, customerID, correlationID, detail string)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
}

// NewAuditService creates the audit recorder
func NewAuditService(repo repository.AuditLogRepository, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) Record(operation string, succeeded bool, entityType string, entityID *uuid.UUID, customerID, correlationID, detail string) {
	entry := &model.AuditLog{
		Action:        model.AuditAction(operation, succeeded),
		EntityType:    entityType,
		EntityID:      entityID,
		CustomerID:    customerID,
		CorrelationID: correlationID,
		Detail:        detail,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			s.logger.Error("failed to write audit log",
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}()
}
