// Package notify holds the customer notification adapter.
//
// Real e-mail delivery is out of scope; EmailStub logs what would have been
// sent so the fulfillment path stays exercised end to end and the call site
// does not change when a real sender lands.
package notify

import (
	"context"
	"log/slog"

	"github.com/jcmexdev/pix-checkout/internal/checkout/core/domain/entity"
	"github.com/jcmexdev/pix-checkout/internal/checkout/core/ports"
)

var _ ports.Notifier = (*EmailStub)(nil)

type EmailStub struct{}

func NewEmailStub() *EmailStub { return &EmailStub{} }

func (EmailStub) SendAssetLinks(ctx context.Context, customer entity.CustomerInfo, links []entity.AssetLink) error {
	slog.InfoContext(ctx, "email delivery stub: would send asset links",
		"email", customer.Email, "links", len(links))
	return nil
}
