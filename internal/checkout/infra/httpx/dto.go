package httpx

import (
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
)

// WebhookRequest is the processor's notification payload. data.id arrives
// as a number or a string depending on the event source.
type WebhookRequest struct {
	Type string `json:"type"`
	Data struct {
		ID entity.FlexID `json:"id"`
	} `json:"data"`
}

// WebhookAck is always returned with 200 once the payload parses, so the
// processor's retry policy is not re-triggered by our internal failures.
type WebhookAck struct {
	Received bool `json:"received"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	MercadoPago bool   `json:"mercadopago"`
	Database    bool   `json:"database"`
}

// PaymentResponse is the intent projection returned to the storefront after
// checkout.
type PaymentResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	Amount       float64 `json:"transaction_amount"`
	QRCode       string  `json:"qr_code"`
	QRCodeBase64 string  `json:"qr_code_base64,omitempty"`
	TicketURL    string  `json:"ticket_url,omitempty"`
}

type StatusResponse struct {
	ID            string             `json:"id"`
	Status        string             `json:"status"`
	DownloadLinks []entity.AssetLink `json:"download_links,omitempty"`
}

type OrderResponse struct {
	PaymentID string                 `json:"payment_id"`
	Status    string                 `json:"status"`
	Amount    float64                `json:"amount"`
	Customer  entity.CustomerInfo    `json:"customer"`
	Address   entity.ShippingAddress `json:"endereco"`
	Items     []entity.MetadataItem  `json:"items"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  []entity.FieldError `json:"fields,omitempty"`
}

func toPaymentResponse(intent *entity.PaymentIntent) PaymentResponse {
	return PaymentResponse{
		ID:           intent.ID,
		Status:       string(intent.Status),
		Amount:       intent.TransactionAmount.InexactFloat64(),
		QRCode:       intent.QRCode,
		QRCodeBase64: intent.QRCodeBase64,
		TicketURL:    intent.TicketURL,
	}
}

func toOrderResponse(record *entity.OrderRecord) OrderResponse {
	return OrderResponse{
		PaymentID: record.PaymentID,
		Status:    string(record.Status),
		Amount:    record.Amount.InexactFloat64(),
		Customer:  record.Customer,
		Address:   record.Address,
		Items:     record.Items,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
