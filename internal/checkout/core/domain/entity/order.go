package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment intent as seen by this system.
//
// Most values mirror the payment processor's own vocabulary; "delivered" is
// our extension, set after the downloadable assets for an approved payment
// have been resolved.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusDelivered Status = "delivered"
	StatusError     Status = "error"
)

// FlexID is a product identifier that storefronts send either as a JSON
// string or as a number. It normalises both to a string and never fails
// decoding — a missing or malformed id is caught by validation instead.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = ""
			return nil
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*f = ""
		return nil
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

// CartItem is one storefront cart line as submitted at checkout.
// Immutable once submitted.
type CartItem struct {
	ID        FlexID            `json:"id"`
	Name      string            `json:"name"`
	UnitPrice *Amount           `json:"price,omitempty"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"variation,omitempty"`
}

// ShippingAddress uses the storefront's Brazilian field names on the wire.
// Every field except Complement is required.
type ShippingAddress struct {
	PostalCode   string `json:"cep"`
	Street       string `json:"logradouro"`
	Number       string `json:"numero"`
	Complement   string `json:"complemento,omitempty"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade"`
	State        string `json:"estado"`
}

// OrderRequest is the validated input contract for payment creation.
type OrderRequest struct {
	Items   []CartItem      `json:"items"`
	Name    string          `json:"nome"`
	Email   string          `json:"email"`
	Phone   string          `json:"telefone"`
	Address ShippingAddress `json:"endereco"`
	Total   Amount          `json:"total"`
}

// CustomerInfo is the customer slice of the intent metadata.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MetadataItem is a cart line as echoed through the payment processor's
// metadata blob. Prices travel as decimal strings so the round trip through
// the processor's JSON store cannot lose precision.
type MetadataItem struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UnitPrice string            `json:"unit_price,omitempty"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"variation,omitempty"`
}

// IntentMetadata is the tagged schema round-tripped through the payment
// processor. It carries everything fulfillment needs so an approved webhook
// can be honoured without consulting the original HTTP request.
type IntentMetadata struct {
	Items    []MetadataItem  `json:"items"`
	Customer CustomerInfo    `json:"customer"`
	Address  ShippingAddress `json:"address"`
}

// Validate checks the metadata shape. It runs on write (before the create
// call) and on read (before fulfillment), since the blob crosses an external
// system we do not control.
func (m IntentMetadata) Validate() error {
	if len(m.Items) == 0 {
		return fmt.Errorf("intent metadata: no items")
	}
	for i, it := range m.Items {
		if it.ID == "" {
			return fmt.Errorf("intent metadata: item %d has no id", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("intent metadata: item %d has quantity %d", i, it.Quantity)
		}
	}
	if m.Customer.Email == "" {
		return fmt.Errorf("intent metadata: no customer email")
	}
	return nil
}

// MetadataFromRequest builds the intent metadata from a validated request.
func MetadataFromRequest(req OrderRequest) IntentMetadata {
	items := make([]MetadataItem, len(req.Items))
	for i, it := range req.Items {
		m := MetadataItem{
			ID:        string(it.ID),
			Name:      it.Name,
			Quantity:  it.Quantity,
			Variation: it.Variation,
		}
		if it.UnitPrice != nil && it.UnitPrice.Valid() {
			m.UnitPrice = it.UnitPrice.Decimal().String()
		}
		items[i] = m
	}
	return IntentMetadata{
		Items: items,
		Customer: CustomerInfo{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		},
		Address: req.Address,
	}
}

// PaymentIntent is the processor-side record of a requested payment,
// projected into our domain.
type PaymentIntent struct {
	ID                string
	Status            Status
	TransactionAmount decimal.Decimal
	QRCode            string
	QRCodeBase64      string
	TicketURL         string
	Metadata          IntentMetadata
}

// OrderRecord is the persisted mirror of a payment intent plus the
// denormalized customer data. One row per payment id; rows are updated on
// status changes and never deleted.
type OrderRecord struct {
	PaymentID string
	Status    Status
	Amount    decimal.Decimal
	Customer  CustomerInfo
	Address   ShippingAddress
	Items     []MetadataItem
	QRCode    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a row of the read-only product catalog.
type Product struct {
	ID          string
	Name        string
	DownloadURL string
}

// AssetLink grants access to one purchased digital good. Derived on demand,
// never persisted.
type AssetLink struct {
	ProductID string            `json:"product_id"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Quantity  int               `json:"quantity"`
	Variation map[string]string `json:"variation,omitempty"`
}
