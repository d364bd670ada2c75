package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pos-terminal/internal/httpx"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"
)

// ErrorKind is the structured failure category returned by the commit
// endpoint. The checkout flow branches on kinds, never on message text.
type ErrorKind string

const (
	KindInsufficientStock   ErrorKind = "insufficient_stock"
	KindInsufficientPayment ErrorKind = "insufficient_payment"
	KindProductNotFound     ErrorKind = "product_not_found"
	KindUnavailable         ErrorKind = "unavailable"
)

// Error is a structured gateway failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s: %s", e.Kind, e.Message)
}

// KindOf extracts the error kind, or KindUnavailable for transport and
// unclassified failures.
func KindOf(err error) ErrorKind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindUnavailable
}

// Client commits transactions against the remote payment endpoint.
type Client interface {
	ProcessTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error)
}

// HTTPClient is the production Client over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	retry   httpx.RetryPolicy
	logger  *zap.Logger
}

// NewHTTPClient creates a gateway client sharing the common retry policy.
func NewHTTPClient(baseURL string, timeout time.Duration, retry httpx.RetryPolicy) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		retry:   retry,
		logger:  util.GetLogger().Named("gateway"),
	}
}

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Error     string `json:"error"`
}

// ProcessTransaction posts the commit request. Business rejections
// (stock, payment, unknown product) come back as *Error with their kind
// and are not retried; transport and 5xx failures are retried per the
// policy and surface as KindUnavailable once the budget is exhausted.
func (c *HTTPClient) ProcessTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode transaction request: %w", err)
	}

	var tx models.Transaction
	err = c.retry.Do(ctx, func(ctx context.Context) error {
		util.GatewayAttemptsTotal.Inc()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/v1/transactions", bytes.NewReader(body))
		if err != nil {
			return httpx.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			c.logger.Warn("Gateway request failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(raw, &tx); err != nil {
				return httpx.Permanent(fmt.Errorf("decode transaction response: %w", err))
			}
			return nil

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			var er errorResponse
			if err := json.Unmarshal(raw, &er); err != nil || er.ErrorKind == "" {
				return httpx.Permanent(&Error{
					Kind:    KindUnavailable,
					Message: fmt.Sprintf("unexpected response %d", resp.StatusCode),
				})
			}
			return httpx.Permanent(&Error{
				Kind:    ErrorKind(er.ErrorKind),
				Message: er.Error,
			})

		default:
			c.logger.Warn("Gateway server error",
				zap.Int("status", resp.StatusCode))
			return fmt.Errorf("gateway status %d", resp.StatusCode)
		}
	})
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) {
			return nil, gerr
		}
		return nil, &Error{Kind: KindUnavailable, Message: err.Error()}
	}

	return &tx, nil
}
