package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
	"github.com/jcmexdev/pix-checkout/internal/pkg/cache"
	"gorm.io/gorm"
)

// productCacheTTL is short on purpose: admins edit download links and
// expect them to take effect within minutes.
const productCacheTTL = 5 * time.Minute

// Ensure Catalog implements the port at compile time.
var _ ports.ProductCatalog = (*Catalog)(nil)

// Catalog reads the products table, with a redis look-aside cache in front.
// cache may be nil — lookups then always hit the database.
type Catalog struct {
	db    *gorm.DB
	cache cache.Cache
}

func NewCatalog(db *gorm.DB, c cache.Cache) *Catalog {
	return &Catalog{db: db, cache: c}
}

// Product looks a product up by id, cache first.
func (c *Catalog) Product(ctx context.Context, id string) (*entity.Product, error) {
	if p, ok := c.fromCache(ctx, id); ok {
		return p, nil
	}

	var row productModel
	err := c.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("postgres: product %s: %w", id, ports.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product %s: %w", id, err)
	}

	p := &entity.Product{
		ID:          row.ID,
		Name:        row.Name,
		DownloadURL: row.DownloadURL,
	}
	c.toCache(ctx, id, p)
	return p, nil
}

func (c *Catalog) fromCache(ctx context.Context, id string) (*entity.Product, bool) {
	if c.cache == nil {
		return nil, false
	}
	raw, ok, err := c.cache.Get(ctx, c.cache.GenerateKey("product", id))
	if err != nil {
		slog.WarnContext(ctx, "product cache read failed", "product_id", id, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var p entity.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *Catalog) toCache(ctx context.Context, id string, p *entity.Product) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.GenerateKey("product", id), string(raw), productCacheTTL); err != nil {
		slog.WarnContext(ctx, "product cache write failed", "product_id", id, "error", err)
	}
}
