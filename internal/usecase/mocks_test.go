package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

type mockTransactionRepo struct {
	mock.Mock
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *model.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepo) Update(ctx context.Context, tx *model.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByGatewayID(ctx context.Context, gatewayTxID string) (*model.Transaction, error) {
	args := m.Called(ctx, gatewayTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) FindByOrderID(ctx context.Context, orderID string) ([]*model.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *mockTransactionRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Transaction), args.Get(1).(int64), args.Error(2)
}

type mockSubscriptionRepo struct {
	mock.Mock
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, sub *model.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) FindByGatewayID(ctx context.Context, gatewaySubID string) (*model.Subscription, error) {
	args := m.Called(ctx, gatewaySubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepo) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*model.Subscription, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*model.Subscription), args.Get(1).(int64), args.Error(2)
}

type mockIdempotencyRepo struct {
	mock.Mock
}

func (m *mockIdempotencyRepo) InsertIfAbsent(ctx context.Context, record *model.IdempotencyRecord) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyRepo) FindByKey(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IdempotencyRecord), args.Error(1)
}

func (m *mockIdempotencyRepo) Update(ctx context.Context, record *model.IdempotencyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockIdempotencyRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockWebhookEventRepo struct {
	mock.Mock
}

func (m *mockWebhookEventRepo) InsertIfAbsent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

func (m *mockWebhookEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.WebhookEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *mockWebhookEventRepo) FindByExternalID(ctx context.Context, externalEventID string) (*model.WebhookEvent, error) {
	args := m.Called(ctx, externalEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WebhookEvent), args.Error(1)
}

func (m *mockWebhookEventRepo) Update(ctx context.Context, event *model.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) Authorize(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card gateway.Card) (*gateway.Result, error) {
	args := m.Called(ctx, orderID, amount, currency, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) Purchase(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card gateway.Card) (*gateway.Result, error) {
	args := m.Called(ctx, orderID, amount, currency, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) Capture(ctx context.Context, gatewayTxID string, amount decimal.Decimal) (*gateway.Result, error) {
	args := m.Called(ctx, gatewayTxID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) Void(ctx context.Context, gatewayTxID string) (*gateway.Result, error) {
	args := m.Called(ctx, gatewayTxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) Refund(ctx context.Context, gatewayTxID string, amount decimal.Decimal, cardLastFour string) (*gateway.Result, error) {
	args := m.Called(ctx, gatewayTxID, amount, cardLastFour)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) CreateSubscription(ctx context.Context, planName string, schedule gateway.SubscriptionSchedule, card gateway.Card) (*gateway.Result, error) {
	args := m.Called(ctx, planName, schedule, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) UpdateSubscription(ctx context.Context, gatewaySubID string, amount decimal.Decimal, card *gateway.Card) (*gateway.Result, error) {
	args := m.Called(ctx, gatewaySubID, amount, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) CancelSubscription(ctx context.Context, gatewaySubID string) (*gateway.Result, error) {
	args := m.Called(ctx, gatewaySubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

func (m *mockGatewayClient) ValidateWebhookSignature(body []byte, signatureHeader string) bool {
	args := m.Called(body, signatureHeader)
	return args.Bool(0)
}

// nopAudit swallows audit records so tests stay synchronous
type nopAudit struct{}

func (nopAudit) Record(string, bool, string, *uuid.UUID, string, string, string) {}

// memCache is an in-memory CacheRepository
type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
