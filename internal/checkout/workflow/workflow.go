// Package workflow implements the payment reconciliation workflow:
//
//	validated → intent_created → awaiting_confirmation → approved → delivered
//
// with rejected/error as terminal failure states. Checkout drives the first
// half synchronously; the second half runs later, triggered either by an
// inbound webhook or by a client-initiated status poll. Both triggers share
// the same fetch-then-fulfill path, so a webhook racing a poll is harmless:
// every mutation is an unconditional last-write-wins overwrite.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/jcmexdev/pix-checkout/internal/checkout/eventlog"
	"github.com/jcmexdev/pix-checkout/internal/pkg/retry"
)

// ErrGatewayUnavailable is returned when no payment gateway is configured.
// The HTTP layer maps it to 503.
var ErrGatewayUnavailable = errors.New("payment gateway is not configured")

// WebhookEventPayment is the only webhook type that triggers reconciliation.
const WebhookEventPayment = "payment"

// Service coordinates the checkout and reconciliation flows. All
// dependencies are injected once at startup; there are no ambient globals.
type Service struct {
	gateway  ports.PaymentGateway // nil when unconfigured
	orders   ports.OrderRepository
	catalog  ports.ProductCatalog
	notifier ports.Notifier     // nil-safe: notification skipped if nil
	events   eventlog.Repository // nil-safe: auditing skipped if nil
	exec     *retry.Executor
}

// New wires a Service. gateway may be nil (the service then answers every
// payment operation with ErrGatewayUnavailable); notifier and events may be
// nil and are skipped.
func New(
	gateway ports.PaymentGateway,
	orders ports.OrderRepository,
	catalog ports.ProductCatalog,
	notifier ports.Notifier,
	events eventlog.Repository,
	exec *retry.Executor,
) *Service {
	if exec == nil {
		exec = retry.New(retry.DefaultMaxAttempts, retry.DefaultBaseDelay)
	}
	return &Service{
		gateway:  gateway,
		orders:   orders,
		catalog:  catalog,
		notifier: notifier,
		events:   events,
		exec:     exec,
	}
}

// GatewayConfigured reports whether a payment gateway was wired in.
func (s *Service) GatewayConfigured() bool { return s.gateway != nil }

// Checkout validates the request, creates a payment intent through the retry
// executor and persists the mirroring order row.
//
// Intent creation failure is fatal: nothing is persisted and the error is
// returned. Persistence failure is NOT fatal: the payment already exists
// upstream, so the intent is returned to the caller and the insert failure
// is only logged.
func (s *Service) Checkout(ctx context.Context, req entity.OrderRequest) (*entity.PaymentIntent, error) {
	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	md := entity.MetadataFromRequest(req)
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("build intent metadata: %w", err)
	}

	params := ports.CreatePaymentParams{
		Amount:      req.Total.Decimal(),
		Description: fmt.Sprintf("Pedido digital (%d itens)", len(req.Items)),
		PayerEmail:  req.Email,
		PayerName:   req.Name,
		Metadata:    md,
	}

	intent, err := retry.Do(ctx, s.exec, func(ctx context.Context) (*entity.PaymentIntent, error) {
		return s.gateway.CreatePayment(ctx, params)
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	slog.InfoContext(ctx, "payment intent created",
		"payment_id", intent.ID, "status", intent.Status, "amount", intent.TransactionAmount)

	now := time.Now().UTC()
	record := &entity.OrderRecord{
		PaymentID: intent.ID,
		Status:    statusOrPending(intent.Status),
		Amount:    intent.TransactionAmount,
		Customer:  md.Customer,
		Address:   md.Address,
		Items:     md.Items,
		QRCode:    intent.QRCode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.InsertOrder(ctx, record); err != nil {
		// Best effort only: the payment exists upstream regardless of local
		// persistence, so the caller still gets the intent.
		slog.ErrorContext(ctx, "failed to persist order record",
			"payment_id", intent.ID, "error", err)
	}

	return intent, nil
}

// HandleWebhook processes one inbound processor notification. Events whose
// type is not "payment" are ignored. The returned error is informational:
// the HTTP layer answers 200 to the processor either way, so its retry
// policy is not re-triggered by our internal failures.
func (s *Service) HandleWebhook(ctx context.Context, eventType, paymentID string) error {
	if eventType != WebhookEventPayment {
		slog.InfoContext(ctx, "ignoring webhook event", "type", eventType, "payment_id", paymentID)
		return nil
	}

	s.audit(ctx, eventlog.New(ctx, paymentID, eventlog.KindWebhookReceived, "", ""))

	intent, err := s.fetchPayment(ctx, paymentID)
	if err != nil {
		s.audit(ctx, eventlog.New(ctx, paymentID, eventlog.KindError, "", err.Error()))
		slog.ErrorContext(ctx, "webhook: failed to fetch payment", "payment_id", paymentID, "error", err)
		return err
	}

	s.reconcile(ctx, intent)
	return nil
}

// CheckStatus fetches the current intent state on behalf of the storefront.
// When the payment is approved it also runs fulfillment and returns the
// resolved asset links.
func (s *Service) CheckStatus(ctx context.Context, paymentID string) (*entity.PaymentIntent, []entity.AssetLink, error) {
	if s.gateway == nil {
		return nil, nil, ErrGatewayUnavailable
	}

	intent, err := s.fetchPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	s.audit(ctx, eventlog.New(ctx, paymentID, eventlog.KindStatusFetched, string(intent.Status), ""))

	links := s.reconcile(ctx, intent)
	return intent, links, nil
}

// Order returns the persisted order record for a payment id.
func (s *Service) Order(ctx context.Context, paymentID string) (*entity.OrderRecord, error) {
	return s.orders.GetByPaymentID(ctx, paymentID)
}

// reconcile pushes the freshly observed intent state into the orders table
// and, when the payment is approved, runs fulfillment. Returns whatever
// asset links were resolved.
func (s *Service) reconcile(ctx context.Context, intent *entity.PaymentIntent) []entity.AssetLink {
	if intent.Status != entity.StatusApproved {
		if err := s.orders.UpdateStatus(ctx, intent.ID, intent.Status); err != nil {
			slog.ErrorContext(ctx, "failed to update order status",
				"payment_id", intent.ID, "status", intent.Status, "error", err)
		}
		return nil
	}
	return s.fulfill(ctx, intent)
}

// fulfill resolves the downloadable-asset link for every cart item in the
// intent metadata. Items without a configured link are skipped with a
// warning. When at least one link resolves the order is overwritten to
// "delivered" — an unconditional write, so repeated webhook deliveries
// converge on the same terminal state.
func (s *Service) fulfill(ctx context.Context, intent *entity.PaymentIntent) []entity.AssetLink {
	if err := intent.Metadata.Validate(); err != nil {
		s.audit(ctx, eventlog.New(ctx, intent.ID, eventlog.KindError, string(intent.Status), err.Error()))
		slog.ErrorContext(ctx, "fulfillment: intent metadata failed validation",
			"payment_id", intent.ID, "error", err)
		return nil
	}

	var links []entity.AssetLink
	for _, item := range intent.Metadata.Items {
		product, err := s.catalog.Product(ctx, item.ID)
		if err != nil {
			slog.WarnContext(ctx, "fulfillment: catalog lookup failed, skipping item",
				"payment_id", intent.ID, "product_id", item.ID, "error", err)
			continue
		}
		if product.DownloadURL == "" {
			slog.WarnContext(ctx, "fulfillment: product has no download link, skipping item",
				"payment_id", intent.ID, "product_id", item.ID)
			continue
		}
		links = append(links, entity.AssetLink{
			ProductID: product.ID,
			Name:      product.Name,
			URL:       product.DownloadURL,
			Quantity:  item.Quantity,
			Variation: item.Variation,
		})
	}

	if len(links) == 0 {
		s.audit(ctx, eventlog.New(ctx, intent.ID, eventlog.KindFulfillmentSkipped,
			string(intent.Status), "no asset links resolved"))
		slog.WarnContext(ctx, "fulfillment: no asset links resolved, order left as is",
			"payment_id", intent.ID)
		return nil
	}

	if err := s.orders.UpdateStatus(ctx, intent.ID, entity.StatusDelivered); err != nil {
		slog.ErrorContext(ctx, "failed to mark order delivered",
			"payment_id", intent.ID, "error", err)
	}
	s.audit(ctx, eventlog.New(ctx, intent.ID, eventlog.KindDelivered,
		string(intent.Status), fmt.Sprintf("%d asset links resolved", len(links))))

	if s.notifier != nil {
		if err := s.notifier.SendAssetLinks(ctx, intent.Metadata.Customer, links); err != nil {
			slog.ErrorContext(ctx, "failed to notify customer", "payment_id", intent.ID, "error", err)
		}
	}

	return links
}

func (s *Service) fetchPayment(ctx context.Context, paymentID string) (*entity.PaymentIntent, error) {
	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}
	return retry.Do(ctx, s.exec, func(ctx context.Context) (*entity.PaymentIntent, error) {
		return s.gateway.GetPayment(ctx, paymentID)
	})
}

func (s *Service) audit(ctx context.Context, ev *eventlog.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to append payment event",
			"payment_id", ev.PaymentID, "kind", ev.Kind, "error", err)
	}
}

func statusOrPending(st entity.Status) entity.Status {
	if st == "" {
		return entity.StatusPending
	}
	return st
}
