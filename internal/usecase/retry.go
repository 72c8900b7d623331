package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
)

// RetryPolicy bounds retries on transient gateway failures. Backoff
// doubles after each attempt.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryPolicy retries twice after the first failure, waiting 1s
// then 2s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second}
}

// withRetry invokes call until it succeeds, fails terminally, or the
// attempt budget is spent. Only transient gateway errors are retried;
// declines and validation rejections surface immediately.
func withRetry(ctx context.Context, logger *zap.Logger, policy RetryPolicy, operation string, call func(ctx context.Context) (*gateway.Result, error)) (*gateway.Result, error) {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := policy.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		if !domainErr.IsGatewayTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		logger.Warn("transient gateway failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}
