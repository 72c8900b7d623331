package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/domain/dto"
	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/model"
	"github.com/wekeepgrowing/payment-processing/internal/usecase"
)

const purchaseBody = `{"order_id":"ORD-1","customer_id":"CUST-1","amount":"49.95","currency":"USD","card":{"number":"4111111111111111","expiry_month":"12","expiry_year":"2030","cvv":"123"}}`

func keyedRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderIdempotencyKey, "key-1")
	return req, httptest.NewRecorder()
}

func startedResult() *usecase.BeginResult {
	return &usecase.BeginResult{
		Outcome: usecase.BeginStarted,
		Record:  &model.IdempotencyRecord{ID: uuid.New(), Key: "key-1"},
	}
}

func TestPaymentHandler_Purchase(t *testing.T) {
	t.Run("stores and returns the created response", func(t *testing.T) {
		payments := new(mockPaymentService)
		idem := new(mockIdempotencyService)
		var got *dto.PaymentRequest
		payments.On("Purchase", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { got = args.Get(1).(*dto.PaymentRequest) }).
			Return(&dto.TransactionResponse{ID: uuid.NewString(), Status: "CAPTURED"}, nil)
		idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
			Return(startedResult(), nil)
		idem.On("Complete", mock.Anything, mock.Anything, http.StatusCreated, mock.Anything).
			Return(nil)

		h := NewPaymentHandler(payments, idem, zap.NewNop())
		req, rec := keyedRequest(http.MethodPost, "/payments/purchase", purchaseBody)
		c := echo.New().NewContext(req, rec)

		require.NoError(t, h.Purchase(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "key-1", got.IdempotencyKey)
		idem.AssertExpectations(t)
	})

	t.Run("failure outcome is stored for replay", func(t *testing.T) {
		payments := new(mockPaymentService)
		idem := new(mockIdempotencyService)
		payments.On("Purchase", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domainErr.NewGatewayTerminalError("E00027", "the transaction was unsuccessful"))
		record := &model.IdempotencyRecord{ID: uuid.New(), Key: "key-1"}
		idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
			Return(&usecase.BeginResult{Outcome: usecase.BeginStarted, Record: record}, nil)
		var storedStatus int
		var storedBody []byte
		idem.On("Complete", mock.Anything, record, mock.AnythingOfType("int"), mock.Anything).
			Run(func(args mock.Arguments) {
				storedStatus = args.Int(2)
				storedBody = args.Get(3).([]byte)
			}).Return(nil)

		h := NewPaymentHandler(payments, idem, zap.NewNop())
		req, rec := keyedRequest(http.MethodPost, "/payments/purchase", purchaseBody)
		c := echo.New().NewContext(req, rec)

		require.NoError(t, h.Purchase(c))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, http.StatusBadGateway, storedStatus)
		var stored ErrorResponse
		require.NoError(t, json.Unmarshal(storedBody, &stored))
		assert.Equal(t, domainErr.ErrTypeGatewayTerminal, stored.Code)
		idem.AssertExpectations(t)
	})

	t.Run("declined purchase completes with 402", func(t *testing.T) {
		payments := new(mockPaymentService)
		idem := new(mockIdempotencyService)
		payments.On("Purchase", mock.Anything, mock.Anything, mock.Anything).
			Return(&dto.TransactionResponse{Status: "DECLINED", ErrorCode: "2"}, nil)
		idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
			Return(startedResult(), nil)
		idem.On("Complete", mock.Anything, mock.Anything, http.StatusPaymentRequired, mock.Anything).
			Return(nil)

		h := NewPaymentHandler(payments, idem, zap.NewNop())
		req, rec := keyedRequest(http.MethodPost, "/payments/purchase", purchaseBody)
		c := echo.New().NewContext(req, rec)

		require.NoError(t, h.Purchase(c))
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		idem.AssertExpectations(t)
	})

	t.Run("replays the stored response without executing", func(t *testing.T) {
		payments := new(mockPaymentService)
		idem := new(mockIdempotencyService)
		idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
			Return(&usecase.BeginResult{
				Outcome:    usecase.BeginReplay,
				StatusCode: http.StatusCreated,
				Body:       []byte(`{"id":"stored","status":"CAPTURED"}`),
			}, nil)

		h := NewPaymentHandler(payments, idem, zap.NewNop())
		req, rec := keyedRequest(http.MethodPost, "/payments/purchase", purchaseBody)
		c := echo.New().NewContext(req, rec)

		require.NoError(t, h.Purchase(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"id":"stored","status":"CAPTURED"}`, rec.Body.String())
		payments.AssertNotCalled(t, "Purchase")
		idem.AssertNotCalled(t, "Complete")
	})

	t.Run("conflicting key returns 409", func(t *testing.T) {
		payments := new(mockPaymentService)
		idem := new(mockIdempotencyService)
		idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
			Return(&usecase.BeginResult{Outcome: usecase.BeginConflict}, nil)

		h := NewPaymentHandler(payments, idem, zap.NewNop())
		req, rec := keyedRequest(http.MethodPost, "/payments/purchase", purchaseBody)
		c := echo.New().NewContext(req, rec)

		require.NoError(t, h.Purchase(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
		payments.AssertNotCalled(t, "Purchase")
	})
}

func TestPaymentHandler_GuardedOperations(t *testing.T) {
	id := uuid.New()
	resp := &dto.TransactionResponse{ID: id.String(), Status: "CAPTURED"}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		invoke     func(h *PaymentHandler, c echo.Context) error
		setup      func(payments *mockPaymentService)
	}{
		{
			name:       "capture",
			body:       `{"amount":"25.00"}`,
			wantStatus: http.StatusOK,
			invoke:     func(h *PaymentHandler, c echo.Context) error { return h.Capture(c) },
			setup: func(payments *mockPaymentService) {
				payments.On("Capture", mock.Anything, id, mock.Anything, mock.Anything).Return(resp, nil)
			},
		},
		{
			name:       "void",
			wantStatus: http.StatusOK,
			invoke:     func(h *PaymentHandler, c echo.Context) error { return h.Void(c) },
			setup: func(payments *mockPaymentService) {
				payments.On("Void", mock.Anything, id, mock.Anything).Return(resp, nil)
			},
		},
		{
			name:       "refund",
			body:       `{"amount":"10.00"}`,
			wantStatus: http.StatusCreated,
			invoke:     func(h *PaymentHandler, c echo.Context) error { return h.Refund(c) },
			setup: func(payments *mockPaymentService) {
				payments.On("Refund", mock.Anything, id, mock.Anything, mock.Anything).Return(resp, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" consults the guard", func(t *testing.T) {
			payments := new(mockPaymentService)
			idem := new(mockIdempotencyService)
			tt.setup(payments)
			idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
				Return(startedResult(), nil)
			idem.On("Complete", mock.Anything, mock.Anything, tt.wantStatus, mock.Anything).
				Return(nil)

			h := NewPaymentHandler(payments, idem, zap.NewNop())
			req, rec := keyedRequest(http.MethodPost, "/payments/"+id.String()+"/"+tt.name, tt.body)
			c := echo.New().NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(id.String())

			require.NoError(t, tt.invoke(h, c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			idem.AssertExpectations(t)
		})

		t.Run(tt.name+" replays the stored response", func(t *testing.T) {
			payments := new(mockPaymentService)
			idem := new(mockIdempotencyService)
			idem.On("Begin", mock.Anything, "key-1", mock.AnythingOfType("string")).
				Return(&usecase.BeginResult{
					Outcome:    usecase.BeginReplay,
					StatusCode: tt.wantStatus,
					Body:       []byte(`{"id":"stored"}`),
				}, nil)

			h := NewPaymentHandler(payments, idem, zap.NewNop())
			req, rec := keyedRequest(http.MethodPost, "/payments/"+id.String()+"/"+tt.name, tt.body)
			c := echo.New().NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(id.String())

			require.NoError(t, tt.invoke(h, c))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, `{"id":"stored"}`, rec.Body.String())
			payments.AssertNotCalled(t, "Capture")
			payments.AssertNotCalled(t, "Void")
			payments.AssertNotCalled(t, "Refund")
		})
	}
}
