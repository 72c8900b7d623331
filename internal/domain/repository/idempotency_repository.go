package repository

import (
	"context"
	"time"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

// IdempotencyRepository persists idempotency records. InsertIfAbsent is
// the single atomic claim primitive: it reports inserted true when this
// call created the row, false when the key already existed.
type IdempotencyRepository interface {
	InsertIfAbsent(ctx context.Context, record *model.IdempotencyRecord) (inserted bool, err error)
	FindByKey(ctx context.Context, key string) (*model.IdempotencyRecord, error)
	Update(ctx context.Context, record *model.IdempotencyRecord) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
