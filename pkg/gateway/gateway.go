package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the opaque payment-processor capability. Operations are
// keyed by a caller-chosen reference and return a gateway-assigned identifier
// that is persisted alongside the domain record.
type PaymentGateway interface {
	Capture(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	AuthorizeDeposit(ctx context.Context, reference string, amount decimal.Decimal, currency string) (string, error)
	ReleaseDeposit(ctx context.Context, gatewayRef string) error
	Transfer(ctx context.Context, accountRef string, amount decimal.Decimal, currency string) (string, error)
}

// Stub is a local-development gateway that succeeds unconditionally and
// assigns synthetic references.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Capture(_ context.Context, reference string, _ decimal.Decimal, _ string) (string, error) {
	return fmt.Sprintf("cap_%s_%s", reference, uuid.NewString()[:8]), nil
}

func (s *Stub) Refund(_ context.Context, reference string, _ decimal.Decimal, _ string) (string, error) {
	return fmt.Sprintf("ref_%s_%s", reference, uuid.NewString()[:8]), nil
}

func (s *Stub) AuthorizeDeposit(_ context.Context, reference string, _ decimal.Decimal, _ string) (string, error) {
	return fmt.Sprintf("dep_%s_%s", reference, uuid.NewString()[:8]), nil
}

func (s *Stub) ReleaseDeposit(_ context.Context, _ string) error { return nil }

func (s *Stub) Transfer(_ context.Context, _ string, _ decimal.Decimal, _ string) (string, error) {
	return fmt.Sprintf("tr_%s", uuid.NewString()[:12]), nil
}
