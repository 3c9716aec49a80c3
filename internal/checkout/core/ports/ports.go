// Package ports defines the interfaces the checkout workflow depends on.
// The workflow holds these abstractions, never concrete clients, so the
// payment processor, the database and the catalog can all be swapped for
// fakes in tests.
package ports

import (
	"context"
	"errors"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned by OrderRepository when no row matches.
var ErrOrderNotFound = errors.New("order not found")

// ErrProductNotFound is returned by ProductCatalog for unknown product ids.
var ErrProductNotFound = errors.New("product not found")

// CreatePaymentParams is the input for a new PIX payment intent.
type CreatePaymentParams struct {
	Amount      decimal.Decimal
	Description string
	PayerEmail  string
	PayerName   string
	Metadata    entity.IntentMetadata
}

// PaymentGateway is the port for the payment processor.
type PaymentGateway interface {
	// CreatePayment creates a PIX payment intent and returns the processor's
	// projection, QR payload included. Not naturally idempotent — callers
	// that retry must supply stable idempotency semantics.
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*entity.PaymentIntent, error)

	// GetPayment fetches the current state of a payment by its processor id.
	GetPayment(ctx context.Context, id string) (*entity.PaymentIntent, error)
}

// OrderRepository is the port for the persisted orders table.
type OrderRepository interface {
	// InsertOrder creates the row mirroring a freshly created intent.
	// The payment id is the unique key.
	InsertOrder(ctx context.Context, order *entity.OrderRecord) error

	// UpdateStatus overwrites the persisted status (last write wins).
	UpdateStatus(ctx context.Context, paymentID string, status entity.Status) error

	// GetByPaymentID returns the persisted order, or an error satisfying
	// errors.Is(err, ErrOrderNotFound) when no row exists.
	GetByPaymentID(ctx context.Context, paymentID string) (*entity.OrderRecord, error)
}

// ProductCatalog is the port for the read-only products table.
type ProductCatalog interface {
	// Product looks a product up by id. A product with an empty DownloadURL
	// is a valid result: it means no asset link is configured.
	Product(ctx context.Context, id string) (*entity.Product, error)
}

// Notifier delivers asset links to the customer after fulfillment.
type Notifier interface {
	SendAssetLinks(ctx context.Context, customer entity.CustomerInfo, links []entity.AssetLink) error
}
