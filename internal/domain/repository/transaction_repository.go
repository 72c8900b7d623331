package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// TransactionFilter narrows list queries
type TransactionFilter struct {
	CustomerID string
	OrderID    string
	Status     model.TransactionStatus
	Type       model.TransactionType
	Limit      int
	Offset     int
}

// TransactionRepository persists transactions. Update enforces optimistic
// locking on the Version column and returns ConcurrentModificationError
// when the row moved underneath the caller.
type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	Update(ctx context.Context, tx *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	FindByGatewayID(ctx context.Context, gatewayTxID string) (*model.Transaction, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*model.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, int64, error)
}
