package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// WebhookEventRepository persists gateway notifications. InsertIfAbsent
// dedupes on the external event id; inserted false means the gateway
// re-delivered a notification already on file.
type WebhookEventRepository interface {
	InsertIfAbsent(ctx context.Context, event *model.WebhookEvent) (inserted bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error)
	FindByExternalID(ctx context.Context, externalEventID string) (*model.WebhookEvent, error)
	Update(ctx context.Context, event *model.WebhookEvent) error
}
