package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

type idempotencyRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewIdempotencyRepository creates a gorm-backed idempotency repository
func NewIdempotencyRepository(db *gorm.DB, logger *zap.Logger) repository.IdempotencyRepository {
	return &idempotencyRepository{db: db, logger: logger}
}

// InsertIfAbsent claims the key with a single INSERT ... ON CONFLICT DO
// NOTHING. RowsAffected zero means another request holds the key.
func (r *idempotencyRepository) InsertIfAbsent(ctx context.Context, record *model.IdempotencyRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		r.logger.Error("failed to insert idempotency record",
			zap.String("key", record.Key),
			zap.Error(result.Error))
		return false, domainErr.NewInternalError("failed to insert idempotency record", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *idempotencyRepository) FindByKey(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var record model.IdempotencyRecord
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("idempotency record", key)
		}
		return nil, domainErr.NewInternalError("failed to find idempotency record", err)
	}
	return &record, nil
}

func (r *idempotencyRepository) Update(ctx context.Context, record *model.IdempotencyRecord) error {
	err := r.db.WithContext(ctx).
		Model(&model.IdempotencyRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":               record.Status,
			"response_status_code": record.ResponseStatusCode,
			"response_body":        record.ResponseBody,
			"transaction_id":       record.TransactionID,
			"updated_at":           time.Now(),
		}).Error
	if err != nil {
		r.logger.Error("failed to update idempotency record",
			zap.String("key", record.Key),
			zap.Error(err))
		return domainErr.NewInternalError("failed to update idempotency record", err)
	}
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.IdempotencyRecord{})
	if result.Error != nil {
		return 0, domainErr.NewInternalError("failed to delete expired idempotency records", result.Error)
	}
	return result.RowsAffected, nil
}
