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

type transactionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewTransactionRepository creates a gorm-backed transaction repository
func NewTransactionRepository(db *gorm.DB, logger *zap.Logger) repository.TransactionRepository {
	return &transactionRepository{db: db, logger: logger}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		r.logger.Error("failed to create transaction",
			zap.String("order_id", tx.OrderID),
			zap.Error(err))
		return domainErr.NewInternalError("failed to create transaction", err)
	}
	return nil
}

// Update writes all columns guarded by the optimistic version check. A
// lost race leaves the in-memory version untouched so the caller can
// re-read and retry.
func (r *transactionRepository) Update(ctx context.Context, tx *model.Transaction) error {
	currentVersion := tx.Version
	tx.Version = currentVersion + 1

	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND version = ?", tx.ID, currentVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(tx)
	if result.Error != nil {
		tx.Version = currentVersion
		r.logger.Error("failed to update transaction",
			zap.String("transaction_id", tx.ID.String()),
			zap.Error(result.Error))
		return domainErr.NewInternalError("failed to update transaction", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Version = currentVersion
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&model.Transaction{}).
			Where("id = ?", tx.ID).
			Count(&count).Error; err != nil {
			return domainErr.NewInternalError("failed to update transaction", err)
		}
		if count == 0 {
			return domainErr.NewNotFoundError("transaction", tx.ID.String())
		}
		return domainErr.NewConcurrentModificationError("transaction", tx.ID.String())
	}
	return nil
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("transaction", id.String())
		}
		return nil, domainErr.NewInternalError("failed to find transaction", err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindByGatewayID(ctx context.Context, gatewayTxID string) (*model.Transaction, error) {
	var tx model.Transaction
	err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", gatewayTxID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErr.NewNotFoundError("transaction", gatewayTxID)
		}
		return nil, domainErr.NewInternalError("failed to find transaction by gateway id", err)
	}
	return &tx, nil
}

func (r *transactionRepository) FindByOrderID(ctx context.Context, orderID string) ([]*model.Transaction, error) {
	var txs []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, domainErr.NewInternalError("failed to list transactions by order", err)
	}
	return txs, nil
}

func (r *transactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, domainErr.NewInternalError("failed to count transactions", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var txs []*model.Transaction
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&txs).Error
	if err != nil {
		return nil, 0, domainErr.NewInternalError("failed to list transactions", err)
	}
	return txs, total, nil
}
