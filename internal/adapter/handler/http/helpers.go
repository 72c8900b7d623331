package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

// correlationID returns the client-supplied correlation id, minting one
// when the header is absent
func correlationID(c echo.Context) string {
	if id := c.Request().Header.Get(HeaderCorrelationID); id != "" {
		return id
	}
	return uuid.NewString()
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// idempotent runs a side-effecting operation under the idempotency
// guard. The raw body is fingerprinted so a reused key with a different
// payload is rejected, replays return the stored response verbatim, and
// both success and failure outcomes are recorded against the key so a
// retry sees the same answer rather than a conflict.
func idempotent(c echo.Context, guard usecase.IdempotencyService, logger *zap.Logger, body []byte, exec func(ctx context.Context) (int, interface{}, error)) error {
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	fingerprint := usecase.Fingerprint(c.Request().Method, c.Request().URL.Path, body)

	begin, err := guard.Begin(c.Request().Context(), key, fingerprint)
	if err != nil {
		return writeError(c, err)
	}
	switch begin.Outcome {
	case usecase.BeginReplay:
		return c.JSONBlob(begin.StatusCode, begin.Body)
	case usecase.BeginConflict:
		return c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "DUPLICATE_REQUEST",
			Message: "a request with this idempotency key is in flight or differs from the original",
		})
	}

	status, payload, err := exec(c.Request().Context())
	if err != nil {
		var errResp ErrorResponse
		status, errResp = errorStatus(err)
		payload = errResp
	}
	respBody, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return writeError(c, marshalErr)
	}
	if completeErr := guard.Complete(c.Request().Context(), begin.Record, status, respBody); completeErr != nil {
		logger.Error("failed to store idempotent response",
			zap.String("key", key),
			zap.Error(completeErr))
	}
	return c.JSONBlob(status, respBody)
}
