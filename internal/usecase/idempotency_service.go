package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"

	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/domain/repository"
)

// BeginOutcome classifies what an idempotency key claim produced
type BeginOutcome int

const (
	// BeginStarted means this request owns the key and must execute
	BeginStarted BeginOutcome = iota
	// BeginReplay means a completed response is stored and must be replayed
	BeginReplay
	// BeginConflict means the key is claimed by an in-flight request or a
	// request with a different fingerprint
	BeginConflict
)

// BeginResult carries the claim outcome and, for replays, the stored
// response.
type BeginResult struct {
	Outcome    BeginOutcome
	Record     *model.IdempotencyRecord
	StatusCode int
	Body       []byte
}

// IdempotencyService guards payment operations with client-supplied
// keys. An empty key skips the guard entirely.
type IdempotencyService interface {
	Begin(ctx context.Context, key, fingerprint string) (*BeginResult, error)
	Complete(ctx context.Context, record *model.IdempotencyRecord, statusCode int, body []byte) error
	Sweep(ctx context.Context) (int64, error)
	RunSweeper(ctx context.Context, interval time.Duration)
}

type idempotencyService struct {
	repo   repository.IdempotencyRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewIdempotencyService creates the idempotency guard
func NewIdempotencyService(repo repository.IdempotencyRepository, ttl time.Duration, logger *zap.Logger) IdempotencyService {
	return &idempotencyService{repo: repo, ttl: ttl, logger: logger}
}

// Fingerprint hashes the request identity: method, path and body
func Fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte("\n"))
	h.Write([]byte(path))
	h.Write([]byte("\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin claims the key atomically. When the insert loses, the existing
// record decides the outcome: a completed record with a matching
// fingerprint replays its stored response, anything else conflicts.
func (s *idempotencyService) Begin(ctx context.Context, key, fingerprint string) (*BeginResult, error) {
	if key == "" {
		return &BeginResult{Outcome: BeginStarted}, nil
	}

	record := &model.IdempotencyRecord{
		Key:                key,
		RequestFingerprint: fingerprint,
		Status:             model.IdempotencyStatusProcessing,
		ExpiresAt:          time.Now().Add(s.ttl),
	}
	inserted, err := s.repo.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, err
	}
	if inserted {
		return &BeginResult{Outcome: BeginStarted, Record: record}, nil
	}

	existing, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		var notFound *domainErr.NotFoundError
		// the row can expire between the losing insert and this read;
		// treat that as a conflict and let the client retry
		if errors.As(err, &notFound) {
			return &BeginResult{Outcome: BeginConflict}, nil
		}
		return nil, err
	}
	if !existing.MatchesFingerprint(fingerprint) {
		s.logger.Warn("idempotency key reused with different request",
			zap.String("key", key))
		return &BeginResult{Outcome: BeginConflict, Record: existing}, nil
	}
	if existing.Status == model.IdempotencyStatusCompleted {
		s.logger.Info("replaying stored idempotent response",
			zap.String("key", key))
		return &BeginResult{
			Outcome:    BeginReplay,
			Record:     existing,
			StatusCode: existing.ResponseStatusCode,
			Body:       existing.ResponseBody,
		}, nil
	}
	return &BeginResult{Outcome: BeginConflict, Record: existing}, nil
}

// Complete stores the response for future replays. A nil record means
// the operation ran unguarded.
func (s *idempotencyService) Complete(ctx context.Context, record *model.IdempotencyRecord, statusCode int, body []byte) error {
	if record == nil {
		return nil
	}
	record.Status = model.IdempotencyStatusCompleted
	record.ResponseStatusCode = statusCode
	record.ResponseBody = body
	return s.repo.Update(ctx, record)
}

// Sweep removes records past their replay window
func (s *idempotencyService) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("swept expired idempotency records", zap.Int64("removed", removed))
	}
	return removed, nil
}

// RunSweeper sweeps on a ticker until ctx is canceled
func (s *idempotencyService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("idempotency sweep failed", zap.Error(err))
			}
		}
	}
}
