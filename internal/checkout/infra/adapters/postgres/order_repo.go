package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"gorm.io/gorm"
)

// Ensure OrderRepo implements the port at compile time.
var _ ports.OrderRepository = (*OrderRepo)(nil)

// OrderRepo persists order records keyed by payment id.
type OrderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// InsertOrder creates the row mirroring a freshly created payment intent.
// The unique index on payment_id makes a double insert fail loudly instead
// of silently duplicating an order.
func (r *OrderRepo) InsertOrder(ctx context.Context, order *entity.OrderRecord) error {
	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("postgres: marshal address: %w", err)
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("postgres: marshal items: %w", err)
	}

	row := orderModel{
		PaymentID:     order.PaymentID,
		Status:        string(order.Status),
		Amount:        order.Amount,
		CustomerName:  order.Customer.Name,
		CustomerEmail: order.Customer.Email,
		CustomerPhone: order.Customer.Phone,
		Address:       string(address),
		Items:         string(items),
		QRCode:        order.QRCode,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("postgres: insert order %s: %w", order.PaymentID, err)
	}
	return nil
}

// UpdateStatus overwrites the persisted status. Last write wins; a webhook
// racing a status poll converges on whichever observation lands last.
func (r *OrderRepo) UpdateStatus(ctx context.Context, paymentID string, status entity.Status) error {
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("payment_id = ?", paymentID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("postgres: update status of %s: %w", paymentID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("postgres: update status of %s: %w", paymentID, ports.ErrOrderNotFound)
	}
	return nil
}

// GetByPaymentID returns the persisted order record.
func (r *OrderRepo) GetByPaymentID(ctx context.Context, paymentID string) (*entity.OrderRecord, error) {
	var row orderModel
	err := r.db.WithContext(ctx).First(&row, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("postgres: order %s: %w", paymentID, ports.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get order %s: %w", paymentID, err)
	}

	record := &entity.OrderRecord{
		PaymentID: row.PaymentID,
		Status:    entity.Status(row.Status),
		Amount:    row.Amount,
		Customer: entity.CustomerInfo{
			Name:  row.CustomerName,
			Email: row.CustomerEmail,
			Phone: row.CustomerPhone,
		},
		QRCode:    row.QRCode,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Address != "" {
		if err := json.Unmarshal([]byte(row.Address), &record.Address); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal address of %s: %w", paymentID, err)
		}
	}
	if row.Items != "" {
		if err := json.Unmarshal([]byte(row.Items), &record.Items); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal items of %s: %w", paymentID, err)
		}
	}
	return record, nil
}
