package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// orderModel is the gorm mapping of the orders table. One row per payment
// id; customer, address and items are denormalized so the row is readable
// without joins. Rows are never deleted.
type orderModel struct {
	ID            uint            `gorm:"primaryKey"`
	PaymentID     string          `gorm:"uniqueIndex;not null;type:varchar(64)"`
	Status        string          `gorm:"not null;type:varchar(20)"`
	Amount        decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	CustomerName  string          `gorm:"not null;type:varchar(200)"`
	CustomerEmail string          `gorm:"not null;type:varchar(200)"`
	CustomerPhone string          `gorm:"type:varchar(40)"`
	Address       string          `gorm:"type:jsonb"`
	Items         string          `gorm:"type:jsonb"`
	QRCode        string          `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (orderModel) TableName() string { return "orders" }

// productModel maps the read-only products table maintained by the
// storefront's admin tooling. DownloadURL may be empty: the product then has
// no digital asset configured.
type productModel struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	Name        string `gorm:"not null;type:varchar(200)"`
	DownloadURL string `gorm:"column:download_url;type:text"`
}

func (productModel) TableName() string { return "products" }
