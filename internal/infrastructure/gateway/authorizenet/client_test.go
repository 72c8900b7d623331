package authorizenet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/config"
	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
)

func testCard() gateway.Card {
	return gateway.Card{
		Number:      "4111111111111111",
		ExpiryMonth: "12",
		ExpiryYear:  "2030",
		CVV:         "123",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.GatewayConfig{
		BaseURL:        server.URL,
		APILoginID:     "login",
		TransactionKey: "transkey",
		Timeout:        2 * time.Second,
	}, zap.NewNop())
}

func respondJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	// the live API prefixes responses with a UTF-8 BOM
	_, err := w.Write(append([]byte("\xef\xbb\xbf"), body...))
	require.NoError(t, err)
}

func TestClient_Purchase(t *testing.T) {
	ctx := context.Background()

	t.Run("approved", func(t *testing.T) {
		var captured map[string]json.RawMessage
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			respondJSON(t, w, `{
				"transactionResponse": {
					"responseCode": "1",
					"authCode": "AUTH01",
					"avsResultCode": "Y",
					"cvvResultCode": "M",
					"transId": "60123456789"
				},
				"messages": {"resultCode": "Ok", "message": [{"code": "I00001", "text": "Successful."}]}
			}`)
		})

		result, err := client.Purchase(ctx, "ORD-1", decimal.RequireFromString("49.95"), "USD", testCard())

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "60123456789", result.TransactionID)
		assert.Equal(t, "AUTH01", result.AuthCode)
		assert.Equal(t, "Y", result.AVSResult)

		var req struct {
			RefID              string `json:"refId"`
			TransactionRequest struct {
				TransactionType string `json:"transactionType"`
				Amount          string `json:"amount"`
			} `json:"transactionRequest"`
		}
		require.NoError(t, json.Unmarshal(captured["createTransactionRequest"], &req))
		assert.Equal(t, "ORD-1", req.RefID)
		assert.Equal(t, "authCaptureTransaction", req.TransactionRequest.TransactionType)
		assert.Equal(t, "49.95", req.TransactionRequest.Amount)
	})

	t.Run("declined card returns an unsuccessful result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, `{
				"transactionResponse": {
					"responseCode": "2",
					"transId": "60123456790",
					"errors": [{"errorCode": "2", "errorText": "This transaction has been declined."}]
				},
				"messages": {"resultCode": "Ok", "message": [{"code": "I00001", "text": "Successful."}]}
			}`)
		})

		result, err := client.Purchase(ctx, "ORD-2", decimal.RequireFromString("49.95"), "USD", testCard())

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "2", result.ErrorCode)
		assert.Equal(t, "This transaction has been declined.", result.ErrorMessage)
	})

	t.Run("processing error is terminal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, `{
				"transactionResponse": {
					"responseCode": "3",
					"errors": [{"errorCode": "11", "errorText": "A duplicate transaction has been submitted."}]
				},
				"messages": {"resultCode": "Error", "message": [{"code": "E00027", "text": "The transaction was unsuccessful."}]}
			}`)
		})

		_, err := client.Purchase(ctx, "ORD-3", decimal.RequireFromString("49.95"), "USD", testCard())

		require.Error(t, err)
		assert.False(t, domainErr.IsGatewayTransient(err))
		var gwErr *domainErr.GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "11", gwErr.Code)
	})

	t.Run("held for review is treated as approved", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, `{
				"transactionResponse": {"responseCode": "4", "transId": "60123456791"},
				"messages": {"resultCode": "Ok", "message": []}
			}`)
		})

		result, err := client.Purchase(ctx, "ORD-4", decimal.RequireFromString("49.95"), "USD", testCard())

		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestClient_Capture(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var captured struct {
			CreateTransactionRequest struct {
				TransactionRequest struct {
					TransactionType string `json:"transactionType"`
					RefTransID      string `json:"refTransId"`
				} `json:"transactionRequest"`
			} `json:"createTransactionRequest"`
		}
		require.NoError(t, json.Unmarshal(body, &captured))
		assert.Equal(t, "priorAuthCaptureTransaction", captured.CreateTransactionRequest.TransactionRequest.TransactionType)
		assert.Equal(t, "60123456789", captured.CreateTransactionRequest.TransactionRequest.RefTransID)
		respondJSON(t, w, `{
			"transactionResponse": {"responseCode": "1", "transId": "60123456789"},
			"messages": {"resultCode": "Ok", "message": []}
		}`)
	})

	result, err := client.Capture(ctx, "60123456789", decimal.RequireFromString("25.00"))

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestClient_TransportErrors(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("10.00")

	t.Run("5xx is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Purchase(ctx, "ORD-1", amount, "USD", testCard())

		require.Error(t, err)
		assert.True(t, domainErr.IsGatewayTransient(err))
	})

	t.Run("429 is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.Purchase(ctx, "ORD-1", amount, "USD", testCard())

		require.Error(t, err)
		assert.True(t, domainErr.IsGatewayTransient(err))
	})

	t.Run("4xx is terminal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := client.Purchase(ctx, "ORD-1", amount, "USD", testCard())

		require.Error(t, err)
		assert.False(t, domainErr.IsGatewayTransient(err))
	})

	t.Run("unreachable gateway is transient", func(t *testing.T) {
		client := NewClient(config.GatewayConfig{
			BaseURL: "http://127.0.0.1:1",
			Timeout: 200 * time.Millisecond,
		}, zap.NewNop())

		_, err := client.Purchase(ctx, "ORD-1", amount, "USD", testCard())

		require.Error(t, err)
		assert.True(t, domainErr.IsGatewayTransient(err))
	})

	t.Run("malformed body is terminal", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		})

		_, err := client.Purchase(ctx, "ORD-1", amount, "USD", testCard())

		require.Error(t, err)
		assert.False(t, domainErr.IsGatewayTransient(err))
	})
}

func TestClient_Subscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("create maps the billing schedule", func(t *testing.T) {
		var captured map[string]json.RawMessage
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			respondJSON(t, w, `{
				"subscriptionId": "900001",
				"messages": {"resultCode": "Ok", "message": [{"code": "I00001", "text": "Successful."}]}
			}`)
		})

		result, err := client.CreateSubscription(ctx, "Gold Plan", gateway.SubscriptionSchedule{
			Amount:        decimal.RequireFromString("29.99"),
			IntervalUnit:  "WEEKLY",
			IntervalCount: 2,
			StartDate:     "2026-09-01",
			TotalCycles:   12,
		}, testCard())

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "900001", result.SubscriptionID)

		var req struct {
			Subscription struct {
				PaymentSchedule struct {
					Interval struct {
						Length int    `json:"length"`
						Unit   string `json:"unit"`
					} `json:"interval"`
					TotalOccurrences string `json:"totalOccurrences"`
				} `json:"paymentSchedule"`
			} `json:"subscription"`
		}
		require.NoError(t, json.Unmarshal(captured["ARBCreateSubscriptionRequest"], &req))
		assert.Equal(t, 14, req.Subscription.PaymentSchedule.Interval.Length)
		assert.Equal(t, "days", req.Subscription.PaymentSchedule.Interval.Unit)
		assert.Equal(t, "12", req.Subscription.PaymentSchedule.TotalOccurrences)
	})

	t.Run("trial period maps to a free leading occurrence", func(t *testing.T) {
		var captured map[string]json.RawMessage
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &captured))
			respondJSON(t, w, `{
				"subscriptionId": "900003",
				"messages": {"resultCode": "Ok", "message": []}
			}`)
		})

		result, err := client.CreateSubscription(ctx, "Gold Plan", gateway.SubscriptionSchedule{
			Amount:        decimal.RequireFromString("29.99"),
			IntervalUnit:  "MONTHLY",
			IntervalCount: 1,
			StartDate:     "2026-09-15",
			TrialDays:     14,
		}, testCard())

		require.NoError(t, err)
		assert.True(t, result.Success)

		var req struct {
			Subscription struct {
				TrialAmount     string `json:"trialAmount"`
				PaymentSchedule struct {
					TrialOccurrences string `json:"trialOccurrences"`
				} `json:"paymentSchedule"`
			} `json:"subscription"`
		}
		require.NoError(t, json.Unmarshal(captured["ARBCreateSubscriptionRequest"], &req))
		assert.Equal(t, "1", req.Subscription.PaymentSchedule.TrialOccurrences)
		assert.Equal(t, "0.00", req.Subscription.TrialAmount)
	})

	t.Run("no trial omits the trial fields", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.NotContains(t, string(body), "trialOccurrences")
			assert.NotContains(t, string(body), "trialAmount")
			respondJSON(t, w, `{
				"subscriptionId": "900004",
				"messages": {"resultCode": "Ok", "message": []}
			}`)
		})

		_, err := client.CreateSubscription(ctx, "Gold Plan", gateway.SubscriptionSchedule{
			Amount:        decimal.RequireFromString("29.99"),
			IntervalUnit:  "MONTHLY",
			IntervalCount: 1,
			StartDate:     "2026-09-15",
		}, testCard())

		require.NoError(t, err)
	})

	t.Run("unbounded subscription uses the maximum occurrence count", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"totalOccurrences":"9999"`)
			respondJSON(t, w, `{
				"subscriptionId": "900002",
				"messages": {"resultCode": "Ok", "message": []}
			}`)
		})

		result, err := client.CreateSubscription(ctx, "Gold Plan", gateway.SubscriptionSchedule{
			Amount:        decimal.RequireFromString("29.99"),
			IntervalUnit:  "MONTHLY",
			IntervalCount: 1,
			StartDate:     "2026-09-01",
		}, testCard())

		require.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("rejection surfaces the gateway message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, `{
				"messages": {"resultCode": "Error", "message": [{"code": "E00012", "text": "A duplicate subscription already exists."}]}
			}`)
		})

		result, err := client.CancelSubscription(ctx, "900001")

		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, "E00012", result.ErrorCode)
		assert.Equal(t, "900001", result.SubscriptionID)
	})
}

func TestScheduleUnits(t *testing.T) {
	tests := []struct {
		unit    string
		count   int
		length  int
		apiUnit string
	}{
		{"DAILY", 10, 10, "days"},
		{"WEEKLY", 1, 7, "days"},
		{"MONTHLY", 3, 3, "months"},
		{"YEARLY", 1, 12, "months"},
		{"MONTHLY", 0, 1, "months"},
	}
	for _, tt := range tests {
		length, unit := scheduleUnits(tt.unit, tt.count)
		assert.Equal(t, tt.length, length, tt.unit)
		assert.Equal(t, tt.apiUnit, unit, tt.unit)
	}
}
