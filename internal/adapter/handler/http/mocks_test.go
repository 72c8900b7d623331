package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wekeepgrowing/payment-processing/internal/domain/dto"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

type mockPaymentService struct{ mock.Mock }

func (m *mockPaymentService) Purchase(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) Authorize(ctx context.Context, req *dto.PaymentRequest, correlationID string) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) Capture(ctx context.Context, id uuid.UUID, req *dto.CaptureRequest, correlationID string) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, id, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) Void(ctx context.Context, id uuid.UUID, correlationID string) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, id, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) Refund(ctx context.Context, id uuid.UUID, req *dto.RefundRequest, correlationID string) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, id, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) GetTransaction(ctx context.Context, id uuid.UUID) (*dto.TransactionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TransactionResponse), args.Error(1)
}

func (m *mockPaymentService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*dto.TransactionResponse, int64, error) {
	args := m.Called(ctx, filter)
	var items []*dto.TransactionResponse
	if args.Get(0) != nil {
		items = args.Get(0).([]*dto.TransactionResponse)
	}
	return items, args.Get(1).(int64), args.Error(2)
}

type mockSubscriptionService struct{ mock.Mock }

func (m *mockSubscriptionService) Create(ctx context.Context, req *dto.SubscriptionRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	args := m.Called(ctx, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubscriptionResponse), args.Error(1)
}

func (m *mockSubscriptionService) Update(ctx context.Context, id uuid.UUID, req *dto.SubscriptionUpdateRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	args := m.Called(ctx, id, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubscriptionResponse), args.Error(1)
}

func (m *mockSubscriptionService) Cancel(ctx context.Context, id uuid.UUID, req *dto.SubscriptionCancelRequest, correlationID string) (*dto.SubscriptionResponse, error) {
	args := m.Called(ctx, id, req, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubscriptionResponse), args.Error(1)
}

func (m *mockSubscriptionService) Get(ctx context.Context, id uuid.UUID) (*dto.SubscriptionResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SubscriptionResponse), args.Error(1)
}

func (m *mockSubscriptionService) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*dto.SubscriptionResponse, int64, error) {
	args := m.Called(ctx, filter)
	var items []*dto.SubscriptionResponse
	if args.Get(0) != nil {
		items = args.Get(0).([]*dto.SubscriptionResponse)
	}
	return items, args.Get(1).(int64), args.Error(2)
}

type mockIdempotencyService struct{ mock.Mock }

func (m *mockIdempotencyService) Begin(ctx context.Context, key, fingerprint string) (*usecase.BeginResult, error) {
	args := m.Called(ctx, key, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.BeginResult), args.Error(1)
}

func (m *mockIdempotencyService) Complete(ctx context.Context, record *model.IdempotencyRecord, statusCode int, body []byte) error {
	args := m.Called(ctx, record, statusCode, body)
	return args.Error(0)
}

func (m *mockIdempotencyService) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockIdempotencyService) RunSweeper(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}
