package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// Migrate applies the schema for all payment entities
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	return db.AutoMigrate(
		&model.Transaction{},
		&model.Subscription{},
		&model.IdempotencyRecord{},
		&model.WebhookEvent{},
		&model.AuditLog{},
	)
}
