// internal/domain/payment/client.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/elearning-storefront/internal/config"
)

type tokenKey struct{}

// WithAccessToken attaches the shopper's bearer token for forwarding upstream
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func accessToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the external Order/Payment service over HTTP/JSON
type Client struct {
	cfg        config.OrderServiceConfig
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient creates a new Order service client
func NewClient(cfg config.OrderServiceConfig, logger logrus.FieldLogger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.WithField("component", "order_client"),
	}
}

// CreateOrder creates an order for every course in the cart
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	return DecodeOrderResult(c.makeAPICall(ctx, http.MethodPost, c.cfg.CreateOrderPath, req))
}

// EnrollNow creates an order for a single course
func (c *Client) EnrollNow(ctx context.Context, req EnrollNowRequest) (*OrderResult, error) {
	return DecodeOrderResult(c.makeAPICall(ctx, http.MethodPost, c.cfg.EnrollNowPath, req))
}

// CompletePayment finalizes an issued payment
func (c *Client) CompletePayment(ctx context.Context, req CompletePaymentRequest) (*PaymentResult, error) {
	return DecodePaymentResult(c.makeAPICall(ctx, http.MethodPost, c.cfg.CompletePaymentPath, req))
}

// VerifyPaymentStatus returns the raw verification outcome for paymentID
func (c *Client) VerifyPaymentStatus(ctx context.Context, paymentID string) Outcome {
	return c.makeAPICall(ctx, http.MethodPost, c.cfg.VerifyPaymentPath, map[string]string{
		"paymentId": paymentID,
	})
}

func (c *Client) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) Outcome {
	var reqBody []byte
	var err error

	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return Outcome{Err: fmt.Errorf("failed to marshal request data: %w", err)}
		}
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(reqBody))
	if err != nil {
		return Outcome{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := accessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	log := c.logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Order service call failed")
		return Outcome{Err: fmt.Errorf("failed to make API call: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.WithError(err).Warn("Failed to read order service response")
		return Outcome{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	log.WithField("status_code", resp.StatusCode).Debug("Order service call completed")

	return Outcome{StatusCode: resp.StatusCode, Body: body}
}
