package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a gorm-backed webhook event repository
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) repository.WebhookEventRepository {
	return &webhookEventRepository{db: db, logger: logger}
}

// InsertIfAbsent dedupes on external_event_id so gateway re-deliveries
// collapse into a single stored event.
func (r *webhookEventRepository) InsertIfAbsent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		r.logger.Error("failed to insert webhook event",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(result.Error))
		return false, domainErr.NewInternalError("failed to insert webhook event", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *webhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("webhook event", id.String())
		}
		return nil, domainErr.NewInternalError("failed to find webhook event", err)
	}
	return &event, nil
}

func (r *webhookEventRepository) FindByExternalID(ctx context.Context, externalEventID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("external_event_id = ?", externalEventID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("webhook event", externalEventID)
		}
		return nil, domainErr.NewInternalError("failed to find webhook event", err)
	}
	return &event, nil
}

func (r *webhookEventRepository) Update(ctx context.Context, event *model.WebhookEvent) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		r.logger.Error("failed to update webhook event",
			zap.String("external_event_id", event.ExternalEventID),
			zap.Error(err))
		return domainErr.NewInternalError("failed to update webhook event", err)
	}
	return nil
}
