package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// SubscriptionFilter narrows list queries
type SubscriptionFilter struct {
	CustomerID string
	Status     model.SubscriptionStatus
	Limit      int
	Offset     int
}

// SubscriptionRepository persists subscriptions. Update enforces
// optimistic locking the same way TransactionRepository does.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *model.Subscription) error
	Update(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	FindByGatewayID(ctx context.Context, gatewaySubID string) (*model.Subscription, error)
	List(ctx context.Context, filter SubscriptionFilter) ([]*model.Subscription, int64, error)
}
