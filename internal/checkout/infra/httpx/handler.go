package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/jcmexdev/pix-checkout/internal/checkout/workflow"
)

// Handler handles the storefront-facing payment routes.
type Handler struct {
	svc           *workflow.Service
	dbPing        func(ctx context.Context) error // nil when no database is configured
	webhookSecret string                          // empty disables signature validation
}

// NewHandler initializes the handler with the workflow service and the
// health/verification collaborators. dbPing may be nil — the health endpoint
// then reports the database as unavailable.
func NewHandler(svc *workflow.Service, dbPing func(ctx context.Context) error, webhookSecret string) *Handler {
	return &Handler{
		svc:           svc,
		dbPing:        dbPing,
		webhookSecret: webhookSecret,
	}
}

// Status reports service health and per-dependency availability.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	dbOK := h.dbPing != nil && h.dbPing(r.Context()) == nil
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		MercadoPago: h.svc.GatewayConfigured(),
		Database:    dbOK,
	})
}

// CreatePayment validates the checkout payload and creates the PIX payment
// intent.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req entity.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	intent, err := h.svc.Checkout(r.Context(), req)
	if err != nil {
		var verr *entity.ValidationError
		switch {
		case errors.As(err, &verr):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:  "validation_error",
				Fields: verr.Fields,
			})
		case errors.Is(err, workflow.ErrGatewayUnavailable):
			writeError(w, http.StatusServiceUnavailable, "payment_gateway_unavailable",
				"payment processor is not configured")
		default:
			slog.ErrorContext(r.Context(), "checkout failed", "error", err)
			writeError(w, http.StatusInternalServerError, "payment_creation_failed", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(intent))
}

// Webhook receives processor notifications. Once the payload parses (and the
// signature checks out, when a secret is configured) the response is always
// 200 {received:true}; reconciliation runs detached so the processor is
// never made to retry because of our internal failures.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	paymentID := string(req.Data.ID)
	if h.webhookSecret != "" {
		sig := r.Header.Get("x-signature")
		reqID := r.Header.Get("x-request-id")
		if !VerifyWebhookSignature(h.webhookSecret, sig, reqID, paymentID) {
			slog.WarnContext(r.Context(), "webhook signature rejected", "payment_id", paymentID)
			writeError(w, http.StatusUnauthorized, "invalid_signature", "")
			return
		}
	}

	// Detach from the HTTP request context so reconciliation is not
	// cancelled when the response is sent, while keeping tracing metadata.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		_ = h.svc.HandleWebhook(ctx, req.Type, paymentID)
	}()

	writeJSON(w, http.StatusOK, WebhookAck{Received: true})
}

// PaymentStatus polls the processor for the current intent state; for
// approved payments it also returns the resolved download links.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "payment_id_required", "")
		return
	}

	intent, links, err := h.svc.CheckStatus(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, workflow.ErrGatewayUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "payment_gateway_unavailable",
				"payment processor is not configured")
			return
		}
		slog.ErrorContext(r.Context(), "status poll failed", "payment_id", paymentID, "error", err)
		writeError(w, http.StatusInternalServerError, "payment_fetch_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		ID:            intent.ID,
		Status:        string(intent.Status),
		DownloadLinks: links,
	})
}

// OrderByID returns the persisted order record for a payment id.
func (h *Handler) OrderByID(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")
	if paymentID == "" {
		writeError(w, http.StatusBadRequest, "payment_id_required", "")
		return
	}

	record, err := h.svc.Order(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order_not_found", "")
			return
		}
		slog.ErrorContext(r.Context(), "order lookup failed", "payment_id", paymentID, "error", err)
		writeError(w, http.StatusInternalServerError, "order_lookup_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(record))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
