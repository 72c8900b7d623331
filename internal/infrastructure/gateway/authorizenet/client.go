// Package authorizenet implements the payment gateway port against the
// Authorize.Net JSON API.
package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/payment-processing/internal/config"
	domainErr "github.com/wekeepgrowing/payment-processing/internal/domain/errors"
	"github.com/wekeepgrowing/payment-processing/internal/domain/gateway"
)

// transaction type codes on the wire
const (
	txTypeAuthCapture      = "authCaptureTransaction"
	txTypeAuthOnly         = "authOnlyTransaction"
	txTypePriorAuthCapture = "priorAuthCaptureTransaction"
	txTypeVoid             = "voidTransaction"
	txTypeRefund           = "refundTransaction"
)

// response codes in transactionResponse
const (
	responseCodeApproved = "1"
	responseCodeDeclined = "2"
	responseCodeError    = "3"
	responseCodeHeld     = "4"
)

type Client struct {
	httpClient *http.Client
	cfg        config.GatewayConfig
	logger     *zap.Logger
}

// NewClient creates the Authorize.Net gateway client
func NewClient(cfg config.GatewayConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

var _ gateway.Client = (*Client)(nil)

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type payment struct {
	CreditCard creditCard `json:"creditCard"`
}

type transactionRequest struct {
	TransactionType string   `json:"transactionType"`
	Amount          string   `json:"amount,omitempty"`
	Payment         *payment `json:"payment,omitempty"`
	RefTransID      string   `json:"refTransId,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     transactionRequest     `json:"transactionRequest"`
}

type apiMessage struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

type apiMessages struct {
	ResultCode string       `json:"resultCode"`
	Message    []apiMessage `json:"message"`
}

type transactionResponseError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type transactionResponse struct {
	ResponseCode  string                     `json:"responseCode"`
	AuthCode      string                     `json:"authCode"`
	AVSResultCode string                     `json:"avsResultCode"`
	CVVResultCode string                     `json:"cvvResultCode"`
	TransID       string                     `json:"transId"`
	Errors        []transactionResponseError `json:"errors"`
}

type createTransactionResponse struct {
	TransactionResponse transactionResponse `json:"transactionResponse"`
	Messages            apiMessages         `json:"messages"`
}

func (c *Client) Purchase(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card gateway.Card) (*gateway.Result, error) {
	return c.submitTransaction(ctx, "purchase", createTransactionRequest{
		MerchantAuthentication: c.auth(),
		RefID:                  orderID,
		TransactionRequest: transactionRequest{
			TransactionType: txTypeAuthCapture,
			Amount:          amount.StringFixed(2),
			Payment:         cardPayment(card),
		},
	})
}

func (c *Client) Authorize(ctx context.Context, orderID string, amount decimal.Decimal, currency string, card gateway.Card) (*gateway.Result, error) {
	return c.submitTransaction(ctx, "authorize", createTransactionRequest{
		MerchantAuthentication: c.auth(),
		RefID:                  orderID,
		TransactionRequest: transactionRequest{
			TransactionType: txTypeAuthOnly,
			Amount:          amount.StringFixed(2),
			Payment:         cardPayment(card),
		},
	})
}

func (c *Client) Capture(ctx context.Context, gatewayTxID string, amount decimal.Decimal) (*gateway.Result, error) {
	return c.submitTransaction(ctx, "capture", createTransactionRequest{
		MerchantAuthentication: c.auth(),
		TransactionRequest: transactionRequest{
			TransactionType: txTypePriorAuthCapture,
			Amount:          amount.StringFixed(2),
			RefTransID:      gatewayTxID,
		},
	})
}

func (c *Client) Void(ctx context.Context, gatewayTxID string) (*gateway.Result, error) {
	return c.submitTransaction(ctx, "void", createTransactionRequest{
		MerchantAuthentication: c.auth(),
		TransactionRequest: transactionRequest{
			TransactionType: txTypeVoid,
			RefTransID:      gatewayTxID,
		},
	})
}

// Refund references the settled transaction and the masked card number
func (c *Client) Refund(ctx context.Context, gatewayTxID string, amount decimal.Decimal, cardLastFour string) (*gateway.Result, error) {
	return c.submitTransaction(ctx, "refund", createTransactionRequest{
		MerchantAuthentication: c.auth(),
		TransactionRequest: transactionRequest{
			TransactionType: txTypeRefund,
			Amount:          amount.StringFixed(2),
			RefTransID:      gatewayTxID,
			Payment: &payment{CreditCard: creditCard{
				CardNumber:     "XXXX" + cardLastFour,
				ExpirationDate: "XXXX",
			}},
		},
	})
}

func (c *Client) submitTransaction(ctx context.Context, operation string, req createTransactionRequest) (*gateway.Result, error) {
	var resp createTransactionResponse
	if err := c.post(ctx, operation, map[string]interface{}{"createTransactionRequest": req}, &resp); err != nil {
		return nil, err
	}

	txResp := resp.TransactionResponse
	result := &gateway.Result{
		TransactionID: txResp.TransID,
		AuthCode:      txResp.AuthCode,
		AVSResult:     txResp.AVSResultCode,
		CVVResult:     txResp.CVVResultCode,
		ResponseCode:  txResp.ResponseCode,
	}
	if len(resp.Messages.Message) > 0 {
		result.ResponseMessage = resp.Messages.Message[0].Text
	}

	switch txResp.ResponseCode {
	case responseCodeApproved, responseCodeHeld:
		result.Success = true
	case responseCodeDeclined:
		result.ErrorCode, result.ErrorMessage = firstTxError(txResp, "declined")
	case responseCodeError:
		code, text := firstTxError(txResp, "gateway error")
		return nil, domainErr.NewGatewayTerminalError(code, text)
	default:
		if resp.Messages.ResultCode == "Error" {
			code, text := firstAPIError(resp.Messages)
			return nil, domainErr.NewGatewayTerminalError(code, text)
		}
		result.Success = true
	}
	return result, nil
}

type arbSubscription struct {
	Name            string           `json:"name,omitempty"`
	PaymentSchedule *paymentSchedule `json:"paymentSchedule,omitempty"`
	Amount          string           `json:"amount,omitempty"`
	TrialAmount     string           `json:"trialAmount,omitempty"`
	Payment         *payment         `json:"payment,omitempty"`
}

type paymentSchedule struct {
	Interval         scheduleInterval `json:"interval"`
	StartDate        string           `json:"startDate"`
	TotalOccurrences string           `json:"totalOccurrences"`
	TrialOccurrences string           `json:"trialOccurrences,omitempty"`
}

type scheduleInterval struct {
	Length int    `json:"length"`
	Unit   string `json:"unit"`
}

type arbResponse struct {
	SubscriptionID string      `json:"subscriptionId"`
	Messages       apiMessages `json:"messages"`
}

func (c *Client) CreateSubscription(ctx context.Context, planName string, schedule gateway.SubscriptionSchedule, card gateway.Card) (*gateway.Result, error) {
	totalOccurrences := "9999"
	if schedule.TotalCycles > 0 {
		totalOccurrences = fmt.Sprintf("%d", schedule.TotalCycles)
	}
	length, unit := scheduleUnits(schedule.IntervalUnit, schedule.IntervalCount)

	sub := arbSubscription{
		Name: planName,
		PaymentSchedule: &paymentSchedule{
			Interval:         scheduleInterval{Length: length, Unit: unit},
			StartDate:        schedule.StartDate,
			TotalOccurrences: totalOccurrences,
		},
		Amount:  schedule.Amount.StringFixed(2),
		Payment: cardPayment(card),
	}
	if schedule.TrialDays > 0 {
		// ARB has no day-based trials; the closest mapping is a single
		// free leading occurrence.
		sub.PaymentSchedule.TrialOccurrences = "1"
		sub.TrialAmount = "0.00"
	}

	body := map[string]interface{}{
		"ARBCreateSubscriptionRequest": map[string]interface{}{
			"merchantAuthentication": c.auth(),
			"subscription":           sub,
		},
	}

	var resp arbResponse
	if err := c.post(ctx, "create_subscription", body, &resp); err != nil {
		return nil, err
	}
	return arbResult(resp), nil
}

func (c *Client) UpdateSubscription(ctx context.Context, gatewaySubID string, amount decimal.Decimal, card *gateway.Card) (*gateway.Result, error) {
	sub := arbSubscription{Amount: amount.StringFixed(2)}
	if card != nil {
		sub.Payment = cardPayment(*card)
	}
	body := map[string]interface{}{
		"ARBUpdateSubscriptionRequest": map[string]interface{}{
			"merchantAuthentication": c.auth(),
			"subscriptionId":         gatewaySubID,
			"subscription":           sub,
		},
	}

	var resp arbResponse
	if err := c.post(ctx, "update_subscription", body, &resp); err != nil {
		return nil, err
	}
	result := arbResult(resp)
	result.SubscriptionID = gatewaySubID
	return result, nil
}

func (c *Client) CancelSubscription(ctx context.Context, gatewaySubID string) (*gateway.Result, error) {
	body := map[string]interface{}{
		"ARBCancelSubscriptionRequest": map[string]interface{}{
			"merchantAuthentication": c.auth(),
			"subscriptionId":         gatewaySubID,
		},
	}

	var resp arbResponse
	if err := c.post(ctx, "cancel_subscription", body, &resp); err != nil {
		return nil, err
	}
	result := arbResult(resp)
	result.SubscriptionID = gatewaySubID
	return result, nil
}

func (c *Client) ValidateWebhookSignature(body []byte, signatureHeader string) bool {
	return VerifySignature(c.cfg.SignatureKey, body, signatureHeader)
}

// post sends one JSON request and classifies transport failures:
// network faults, timeouts, 5xx and 429 are transient, everything else
// is terminal.
func (c *Client) post(ctx context.Context, operation string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return domainErr.NewInternalError("failed to encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return domainErr.NewInternalError("failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("calling gateway", zap.String("operation", operation))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domainErr.NewGatewayTransientError("NETWORK_ERROR", "gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainErr.NewGatewayTransientError("READ_ERROR", "failed to read gateway response", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domainErr.NewGatewayTransientError(
			fmt.Sprintf("HTTP_%d", resp.StatusCode),
			fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return domainErr.NewGatewayTerminalError(
			fmt.Sprintf("HTTP_%d", resp.StatusCode),
			fmt.Sprintf("gateway rejected request with status %d", resp.StatusCode))
	}

	// the API answers with a UTF-8 BOM
	respBody = bytes.TrimPrefix(respBody, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(respBody, out); err != nil {
		return domainErr.NewGatewayTerminalError("MALFORMED_RESPONSE", "failed to decode gateway response")
	}
	return nil
}

func (c *Client) auth() merchantAuthentication {
	return merchantAuthentication{
		Name:           c.cfg.APILoginID,
		TransactionKey: c.cfg.TransactionKey,
	}
}

func cardPayment(card gateway.Card) *payment {
	return &payment{CreditCard: creditCard{
		CardNumber:     card.Number,
		ExpirationDate: card.ExpiryYear + "-" + card.ExpiryMonth,
		CardCode:       card.CVV,
	}}
}

func scheduleUnits(intervalUnit string, count int) (int, string) {
	if count <= 0 {
		count = 1
	}
	switch intervalUnit {
	case "DAILY":
		return count, "days"
	case "WEEKLY":
		return 7 * count, "days"
	case "YEARLY":
		return 12 * count, "months"
	default:
		return count, "months"
	}
}

func arbResult(resp arbResponse) *gateway.Result {
	result := &gateway.Result{SubscriptionID: resp.SubscriptionID}
	if resp.Messages.ResultCode == "Ok" {
		result.Success = true
	} else {
		result.ErrorCode, result.ErrorMessage = firstAPIError(resp.Messages)
	}
	if len(resp.Messages.Message) > 0 {
		result.ResponseMessage = resp.Messages.Message[0].Text
	}
	return result
}

func firstTxError(txResp transactionResponse, fallback string) (string, string) {
	if len(txResp.Errors) > 0 {
		return txResp.Errors[0].ErrorCode, txResp.Errors[0].ErrorText
	}
	return txResp.ResponseCode, fallback
}

func firstAPIError(messages apiMessages) (string, string) {
	if len(messages.Message) > 0 {
		return messages.Message[0].Code, messages.Message[0].Text
	}
	return "E_UNKNOWN", "gateway request failed"
}
