package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("POST", "/api/v1/payments/purchase", []byte(`{"amount":"10.00"}`))
	same := Fingerprint("POST", "/api/v1/payments/purchase", []byte(`{"amount":"10.00"}`))
	differentBody := Fingerprint("POST", "/api/v1/payments/purchase", []byte(`{"amount":"20.00"}`))
	differentPath := Fingerprint("POST", "/api/v1/payments/authorize", []byte(`{"amount":"10.00"}`))

	assert.Equal(t, a, same)
	assert.NotEqual(t, a, differentBody)
	assert.NotEqual(t, a, differentPath)
	assert.Len(t, a, 64)
}

func TestIdempotencyService_Begin(t *testing.T) {
	ctx := context.Background()
	fingerprint := Fingerprint("POST", "/api/v1/payments/purchase", []byte(`{}`))

	t.Run("empty key skips the guard", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		result, err := svc.Begin(ctx, "", fingerprint)

		require.NoError(t, err)
		assert.Equal(t, BeginStarted, result.Outcome)
		assert.Nil(t, result.Record)
		repo.AssertNotCalled(t, "InsertIfAbsent")
	})

	t.Run("winning insert starts the request", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		repo.On("InsertIfAbsent", ctx, mock.AnythingOfType("*model.IdempotencyRecord")).Return(true, nil)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		result, err := svc.Begin(ctx, "key-1", fingerprint)

		require.NoError(t, err)
		assert.Equal(t, BeginStarted, result.Outcome)
		require.NotNil(t, result.Record)
		assert.Equal(t, model.IdempotencyStatusProcessing, result.Record.Status)
		assert.Equal(t, fingerprint, result.Record.RequestFingerprint)
		assert.True(t, result.Record.ExpiresAt.After(time.Now().Add(23*time.Hour)))
	})

	t.Run("completed duplicate replays the stored response", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		repo.On("InsertIfAbsent", ctx, mock.Anything).Return(false, nil)
		repo.On("FindByKey", ctx, "key-1").Return(&model.IdempotencyRecord{
			Key:                "key-1",
			RequestFingerprint: fingerprint,
			Status:             model.IdempotencyStatusCompleted,
			ResponseStatusCode: 201,
			ResponseBody:       []byte(`{"status":"CAPTURED"}`),
		}, nil)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		result, err := svc.Begin(ctx, "key-1", fingerprint)

		require.NoError(t, err)
		assert.Equal(t, BeginReplay, result.Outcome)
		assert.Equal(t, 201, result.StatusCode)
		assert.JSONEq(t, `{"status":"CAPTURED"}`, string(result.Body))
	})

	t.Run("in-flight duplicate conflicts", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		repo.On("InsertIfAbsent", ctx, mock.Anything).Return(false, nil)
		repo.On("FindByKey", ctx, "key-1").Return(&model.IdempotencyRecord{
			Key:                "key-1",
			RequestFingerprint: fingerprint,
			Status:             model.IdempotencyStatusProcessing,
		}, nil)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		result, err := svc.Begin(ctx, "key-1", fingerprint)

		require.NoError(t, err)
		assert.Equal(t, BeginConflict, result.Outcome)
	})

	t.Run("reused key with different request conflicts", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		repo.On("InsertIfAbsent", ctx, mock.Anything).Return(false, nil)
		repo.On("FindByKey", ctx, "key-1").Return(&model.IdempotencyRecord{
			Key:                "key-1",
			RequestFingerprint: "some-other-fingerprint",
			Status:             model.IdempotencyStatusCompleted,
			ResponseBody:       []byte(`{}`),
		}, nil)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		result, err := svc.Begin(ctx, "key-1", fingerprint)

		require.NoError(t, err)
		assert.Equal(t, BeginConflict, result.Outcome)
	})
}

func TestIdempotencyService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the response", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		record := &model.IdempotencyRecord{Key: "key-1", Status: model.IdempotencyStatusProcessing}
		repo.On("Update", ctx, record).Return(nil)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		err := svc.Complete(ctx, record, 201, []byte(`{"id":"x"}`))

		require.NoError(t, err)
		assert.Equal(t, model.IdempotencyStatusCompleted, record.Status)
		assert.Equal(t, 201, record.ResponseStatusCode)
		repo.AssertExpectations(t)
	})

	t.Run("nil record is a no-op", func(t *testing.T) {
		repo := new(mockIdempotencyRepo)
		svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

		require.NoError(t, svc.Complete(ctx, nil, 201, nil))
		repo.AssertNotCalled(t, "Update")
	})
}

func TestIdempotencyService_Sweep(t *testing.T) {
	ctx := context.Background()
	repo := new(mockIdempotencyRepo)
	repo.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(7), nil)
	svc := NewIdempotencyService(repo, 24*time.Hour, zap.NewNop())

	removed, err := svc.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(7), removed)
}
