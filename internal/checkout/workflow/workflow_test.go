package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/jcmexdev/pix-checkout/internal/checkout/eventlog"
	"github.com/jcmexdev/pix-checkout/internal/pkg/retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeGateway struct {
	createErr   error
	createCalls int
	failFirstN  int

	payments map[string]*entity.PaymentIntent
	getErr   error
}

func (g *fakeGateway) CreatePayment(ctx context.Context, p ports.CreatePaymentParams) (*entity.PaymentIntent, error) {
	g.createCalls++
	if g.createCalls <= g.failFirstN {
		return nil, errors.New("connection reset")
	}
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &entity.PaymentIntent{
		ID:                "pay-1",
		Status:            entity.StatusPending,
		TransactionAmount: p.Amount,
		QRCode:            "00020126pix-qr-payload",
		QRCodeBase64:      "aGVsbG8=",
		Metadata:          p.Metadata,
	}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*entity.PaymentIntent, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	intent, ok := g.payments[id]
	if !ok {
		return nil, errors.New("payment not found")
	}
	return intent, nil
}

type fakeOrders struct {
	insertErr error
	updateErr error

	records  map[string]*entity.OrderRecord
	statuses map[string][]entity.Status
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		records:  map[string]*entity.OrderRecord{},
		statuses: map[string][]entity.Status{},
	}
}

func (o *fakeOrders) InsertOrder(ctx context.Context, r *entity.OrderRecord) error {
	if o.insertErr != nil {
		return o.insertErr
	}
	o.records[r.PaymentID] = r
	return nil
}

func (o *fakeOrders) UpdateStatus(ctx context.Context, paymentID string, st entity.Status) error {
	if o.updateErr != nil {
		return o.updateErr
	}
	o.statuses[paymentID] = append(o.statuses[paymentID], st)
	if r, ok := o.records[paymentID]; ok {
		r.Status = st
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (o *fakeOrders) GetByPaymentID(ctx context.Context, paymentID string) (*entity.OrderRecord, error) {
	r, ok := o.records[paymentID]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	return r, nil
}

type fakeCatalog struct {
	products map[string]*entity.Product
}

func (c *fakeCatalog) Product(ctx context.Context, id string) (*entity.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	return p, nil
}

type memEvents struct {
	events []eventlog.Event
}

func (m *memEvents) Append(ctx context.Context, ev *eventlog.Event) error {
	m.events = append(m.events, *ev)
	return nil
}

// ---- helpers ----

func fastExecutor() *retry.Executor {
	return retry.New(3, time.Microsecond)
}

func validRequest(t *testing.T) entity.OrderRequest {
	t.Helper()
	var req entity.OrderRequest
	err := json.Unmarshal([]byte(`{
		"items": [{"id": 1, "name": "X", "price": 10, "quantity": 2}],
		"nome": "Maria Silva",
		"email": "maria@example.com",
		"telefone": "11 99999-0000",
		"endereco": {"cep": "01310-100", "logradouro": "Av. Paulista", "numero": "1000",
			"bairro": "Bela Vista", "cidade": "Sao Paulo", "estado": "SP"},
		"total": 20
	}`), &req)
	require.NoError(t, err)
	return req
}

func approvedIntent(id string) *entity.PaymentIntent {
	return &entity.PaymentIntent{
		ID:     id,
		Status: entity.StatusApproved,
		Metadata: entity.IntentMetadata{
			Items: []entity.MetadataItem{
				{ID: "1", Name: "With link", Quantity: 2},
				{ID: "2", Name: "Without link", Quantity: 1},
			},
			Customer: entity.CustomerInfo{Name: "Maria", Email: "maria@example.com"},
		},
	}
}

// ---- checkout ----

func TestCheckoutCreatesIntentAndPersistsOrder(t *testing.T) {
	gw := &fakeGateway{}
	orders := newFakeOrders()
	svc := New(gw, orders, &fakeCatalog{}, nil, nil, fastExecutor())

	intent, err := svc.Checkout(context.Background(), validRequest(t))
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, intent.Status)
	require.NotEmpty(t, intent.QRCode)

	record, err := svc.Order(context.Background(), intent.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, record.Status)
	require.Equal(t, "maria@example.com", record.Customer.Email)
	require.Equal(t, "01310-100", record.Address.PostalCode)
	require.Len(t, record.Items, 1)
	require.Equal(t, "1", record.Items[0].ID)
	require.True(t, record.Amount.Equal(decimal.NewFromInt(20)))
}

func TestCheckoutRetriesTransientCreateFailures(t *testing.T) {
	gw := &fakeGateway{failFirstN: 2}
	svc := New(gw, newFakeOrders(), &fakeCatalog{}, nil, nil, fastExecutor())

	_, err := svc.Checkout(context.Background(), validRequest(t))
	require.NoError(t, err)
	require.Equal(t, 3, gw.createCalls)
}

func TestCheckoutFailsAfterRetryBudgetExhausted(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("gateway down")}
	orders := newFakeOrders()
	svc := New(gw, orders, &fakeCatalog{}, nil, nil, fastExecutor())

	_, err := svc.Checkout(context.Background(), validRequest(t))
	require.Error(t, err)
	require.Equal(t, 3, gw.createCalls)
	require.Empty(t, orders.records, "nothing may be persisted when intent creation fails")
}

func TestCheckoutReturnsIntentWhenPersistenceFails(t *testing.T) {
	orders := newFakeOrders()
	orders.insertErr = errors.New("db unavailable")
	svc := New(&fakeGateway{}, orders, &fakeCatalog{}, nil, nil, fastExecutor())

	intent, err := svc.Checkout(context.Background(), validRequest(t))
	require.NoError(t, err, "persistence is best-effort and must not fail the request")
	require.NotNil(t, intent)
}

func TestCheckoutRejectsInvalidRequestWithoutGatewayCall(t *testing.T) {
	gw := &fakeGateway{}
	svc := New(gw, newFakeOrders(), &fakeCatalog{}, nil, nil, fastExecutor())

	req := validRequest(t)
	req.Items = nil
	_, err := svc.Checkout(context.Background(), req)

	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, gw.createCalls, "validation errors are never retried nor sent upstream")
}

func TestCheckoutWithoutGateway(t *testing.T) {
	svc := New(nil, newFakeOrders(), &fakeCatalog{}, nil, nil, fastExecutor())
	_, err := svc.Checkout(context.Background(), validRequest(t))
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}

// ---- webhook / reconciliation ----

func TestWebhookApprovedPaymentResolvesLinksAndDelivers(t *testing.T) {
	orders := newFakeOrders()
	orders.records["pay-1"] = &entity.OrderRecord{PaymentID: "pay-1", Status: entity.StatusPending}

	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{"pay-1": approvedIntent("pay-1")}}
	catalog := &fakeCatalog{products: map[string]*entity.Product{
		"1": {ID: "1", Name: "With link", DownloadURL: "https://cdn.example.com/a.zip"},
		"2": {ID: "2", Name: "Without link"},
	}}
	events := &memEvents{}
	svc := New(gw, orders, catalog, nil, events, fastExecutor())

	err := svc.HandleWebhook(context.Background(), "payment", "pay-1")
	require.NoError(t, err)

	record, err := svc.Order(context.Background(), "pay-1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusDelivered, record.Status)

	kinds := make([]eventlog.Kind, len(events.events))
	for i, ev := range events.events {
		kinds[i] = ev.Kind
	}
	require.Contains(t, kinds, eventlog.KindWebhookReceived)
	require.Contains(t, kinds, eventlog.KindDelivered)
}

func TestWebhookUnknownPaymentRecordsError(t *testing.T) {
	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{}}
	events := &memEvents{}
	svc := New(gw, newFakeOrders(), &fakeCatalog{}, nil, events, fastExecutor())

	err := svc.HandleWebhook(context.Background(), "payment", "123")
	require.Error(t, err)

	var sawError bool
	for _, ev := range events.events {
		if ev.Kind == eventlog.KindError {
			sawError = true
		}
	}
	require.True(t, sawError)
}

func TestWebhookIgnoresNonPaymentEvents(t *testing.T) {
	gw := &fakeGateway{getErr: errors.New("must not be called")}
	svc := New(gw, newFakeOrders(), &fakeCatalog{}, nil, nil, fastExecutor())

	require.NoError(t, svc.HandleWebhook(context.Background(), "plan", "123"))
}

func TestWebhookPendingPaymentUpdatesStatusOnly(t *testing.T) {
	orders := newFakeOrders()
	orders.records["pay-1"] = &entity.OrderRecord{PaymentID: "pay-1", Status: entity.StatusCreated}
	intent := approvedIntent("pay-1")
	intent.Status = entity.StatusPending
	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{"pay-1": intent}}
	svc := New(gw, orders, &fakeCatalog{}, nil, nil, fastExecutor())

	require.NoError(t, svc.HandleWebhook(context.Background(), "payment", "pay-1"))
	require.Equal(t, []entity.Status{entity.StatusPending}, orders.statuses["pay-1"])
}

func TestFulfillmentWithoutAnyLinksLeavesOrderUntouched(t *testing.T) {
	orders := newFakeOrders()
	orders.records["pay-1"] = &entity.OrderRecord{PaymentID: "pay-1", Status: entity.StatusPending}
	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{"pay-1": approvedIntent("pay-1")}}
	svc := New(gw, orders, &fakeCatalog{products: map[string]*entity.Product{}}, nil, nil, fastExecutor())

	require.NoError(t, svc.HandleWebhook(context.Background(), "payment", "pay-1"))

	record, err := svc.Order(context.Background(), "pay-1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, record.Status, "zero resolved links must not change the status")
}

func TestMarkDeliveredIsIdempotent(t *testing.T) {
	orders := newFakeOrders()
	orders.records["pay-1"] = &entity.OrderRecord{PaymentID: "pay-1", Status: entity.StatusPending}
	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{"pay-1": approvedIntent("pay-1")}}
	catalog := &fakeCatalog{products: map[string]*entity.Product{
		"1": {ID: "1", Name: "With link", DownloadURL: "https://cdn.example.com/a.zip"},
	}}
	svc := New(gw, orders, catalog, nil, nil, fastExecutor())

	require.NoError(t, svc.HandleWebhook(context.Background(), "payment", "pay-1"))
	require.NoError(t, svc.HandleWebhook(context.Background(), "payment", "pay-1"))

	require.Len(t, orders.records, 1, "no duplicate rows")
	require.Equal(t, entity.StatusDelivered, orders.records["pay-1"].Status)
}

// ---- status poll ----

func TestCheckStatusReturnsLinksForApprovedPayment(t *testing.T) {
	orders := newFakeOrders()
	orders.records["pay-1"] = &entity.OrderRecord{PaymentID: "pay-1", Status: entity.StatusPending}
	gw := &fakeGateway{payments: map[string]*entity.PaymentIntent{"pay-1": approvedIntent("pay-1")}}
	catalog := &fakeCatalog{products: map[string]*entity.Product{
		"1": {ID: "1", Name: "With link", DownloadURL: "https://cdn.example.com/a.zip"},
		"2": {ID: "2", Name: "Without link"},
	}}
	svc := New(gw, orders, catalog, nil, nil, fastExecutor())

	intent, links, err := svc.CheckStatus(context.Background(), "pay-1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusApproved, intent.Status)
	require.Len(t, links, 1, "exactly the item with a configured link resolves")
	require.Equal(t, "https://cdn.example.com/a.zip", links[0].URL)
	require.Equal(t, 2, links[0].Quantity)
	require.Equal(t, entity.StatusDelivered, orders.records["pay-1"].Status)
}

func TestCheckStatusWithoutGateway(t *testing.T) {
	svc := New(nil, newFakeOrders(), &fakeCatalog{}, nil, nil, fastExecutor())
	_, _, err := svc.CheckStatus(context.Background(), "pay-1")
	require.ErrorIs(t, err, ErrGatewayUnavailable)
}
