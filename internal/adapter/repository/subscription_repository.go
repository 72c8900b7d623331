package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a gorm-backed subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		r.logger.Error("failed to create subscription",
			zap.String("customer_id", sub.CustomerID),
			zap.Error(err))
		return domainErr.NewInternalError("failed to create subscription", err)
	}
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	currentVersion := sub.Version
	sub.Version = currentVersion + 1

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ? AND version = ?", sub.ID, currentVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(sub)
	if result.Error != nil {
		sub.Version = currentVersion
		r.logger.Error("failed to update subscription",
			zap.String("subscription_id", sub.ID.String()),
			zap.Error(result.Error))
		return domainErr.NewInternalError("failed to update subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		sub.Version = currentVersion
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Subscription{}).
			Where("id = ?", sub.ID).
			Count(&count).Error; err != nil {
			return domainErr.NewInternalError("failed to update subscription", err)
		}
		if count == 0 {
			return domainErr.NewNotFoundError("subscription", sub.ID.String())
		}
		return domainErr.NewConcurrentModificationError("subscription", sub.ID.String())
	}
	return nil
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("subscription", id.String())
		}
		return nil, domainErr.NewInternalError("failed to find subscription", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByGatewayID(ctx context.Context, gatewaySubID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", gatewaySubID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("subscription", gatewaySubID)
		}
		return nil, domainErr.NewInternalError("failed to find subscription by gateway id", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*model.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Subscription{})
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domainErr.NewInternalError("failed to count subscriptions", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var subs []*model.Subscription
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&subs).Error
	if err != nil {
		return nil, 0, domainErr.NewInternalError("failed to list subscriptions", err)
	}
	return subs, total, nil
}
