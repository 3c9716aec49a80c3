// Package mercadopago implements ports.PaymentGateway against the Mercado
// Pago REST API, PIX payment method only.
package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the production Mercado Pago API endpoint.
const DefaultBaseURL = "https://api.mercadopago.com"

// Ensure Client implements the gateway port at compile time.
var _ ports.PaymentGateway = (*Client)(nil)

// Client is a thin REST client for the payments API. It performs no retries
// itself; the workflow wraps calls in the retry executor.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests, sandboxes).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New returns a Client authenticated with the given access token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createPaymentBody struct {
	TransactionAmount json.Number           `json:"transaction_amount"`
	Description       string                `json:"description"`
	PaymentMethodID   string                `json:"payment_method_id"`
	Payer             payerBody             `json:"payer"`
	Metadata          entity.IntentMetadata `json:"metadata"`
}

type payerBody struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type paymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	TransactionAmount  json.Number `json:"transaction_amount"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	Metadata entity.IntentMetadata `json:"metadata"`
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

// CreatePayment creates a PIX payment intent. Every call sends a fresh
// X-Idempotency-Key, mirroring a new checkout attempt on the processor side.
func (c *Client) CreatePayment(ctx context.Context, params ports.CreatePaymentParams) (*entity.PaymentIntent, error) {
	if err := params.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("mercadopago: refusing to send invalid metadata: %w", err)
	}

	body := createPaymentBody{
		TransactionAmount: json.Number(params.Amount.String()),
		Description:       params.Description,
		PaymentMethodID:   "pix",
		Payer: payerBody{
			Email:     params.PayerEmail,
			FirstName: params.PayerName,
		},
		Metadata: params.Metadata,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: marshal payment body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mercadopago: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	return c.doPayment(req)
}

// GetPayment fetches a payment by its processor id.
func (c *Client) GetPayment(ctx context.Context, id string) (*entity.PaymentIntent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.doPayment(req)
}

func (c *Client) doPayment(req *http.Request) (*entity.PaymentIntent, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(res)
	}

	var pr paymentResponse
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("mercadopago: decode payment response: %w", err)
	}
	return mapIntent(pr)
}

func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var ae apiError
	if err := json.Unmarshal(raw, &ae); err == nil && ae.Message != "" {
		return fmt.Errorf("mercadopago: api error %d: %s", res.StatusCode, ae.Message)
	}
	return fmt.Errorf("mercadopago: unexpected status %d: %s", res.StatusCode, bytes.TrimSpace(raw))
}

func mapIntent(pr paymentResponse) (*entity.PaymentIntent, error) {
	if pr.ID.String() == "" {
		return nil, fmt.Errorf("mercadopago: payment response has no id")
	}

	amount := decimal.Zero
	if s := pr.TransactionAmount.String(); s != "" {
		var err error
		amount, err = decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("mercadopago: parse transaction_amount %q: %w", s, err)
		}
	}

	td := pr.PointOfInteraction.TransactionData
	return &entity.PaymentIntent{
		ID:                pr.ID.String(),
		Status:            entity.Status(pr.Status),
		TransactionAmount: amount,
		QRCode:            td.QRCode,
		QRCodeBase64:      td.QRCodeBase64,
		TicketURL:         td.TicketURL,
		Metadata:          pr.Metadata,
	}, nil
}
