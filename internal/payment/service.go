package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"alo17-service/internal/models"
)

// AckResponse is the literal body PayTR expects on a handled callback.
// Anything else makes the provider treat the delivery as failed and retry.
const AckResponse = "OK"

// Store is the external record store the verifier mutates. UpdateStatus
// must be atomic for a single merchant order id and must treat a repeated
// identical update as a successful no-op. Implementations return
// ErrRecordNotFound for unknown order ids.
type Store interface {
	FindByMerchantOID(ctx context.Context, merchantOID string) (*models.PaymentRecord, error)
	UpdateStatus(ctx context.Context, merchantOID string, status models.PaymentStatus) error
}

// EventPublisher receives payment outcome events for the downstream
// notification pipeline.
type EventPublisher interface {
	PublishPaymentStatus(ctx context.Context, merchantOID string, status models.PaymentStatus) error
}

type Service struct {
	signer *Signer
	store  Store
	events EventPublisher // optional
}

func NewService(signer *Signer, store Store, events EventPublisher) *Service {
	return &Service{
		signer: signer,
		store:  store,
		events: events,
	}
}

// HandleCallback authenticates a provider webhook and applies the reported
// status to the payment record. The operation is idempotent: the provider
// retries deliveries, and replaying an identical payload converges on the
// same record state without error.
//
// Failure paths never touch the store: parse and signature errors
// short-circuit before any lookup, and a missing record short-circuits
// before any write.
func (s *Service) HandleCallback(ctx context.Context, form url.Values) error {
	cb, err := ParseCallback(form)
	if err != nil {
		return err
	}

	if !s.signer.VerifyCallback(cb) {
		return fmt.Errorf("%w: merchant_oid=%s", ErrInvalidSignature, cb.MerchantOID)
	}

	status := models.PaymentStatus(cb.Status)

	if err := s.store.UpdateStatus(ctx, cb.MerchantOID, status); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	slog.Info("Payment status applied", "merchantOid", cb.MerchantOID, "status", cb.Status)

	if s.events != nil {
		if err := s.events.PublishPaymentStatus(ctx, cb.MerchantOID, status); err != nil {
			// Delivery to the notification pipeline is best effort; the
			// record is already consistent.
			slog.Error("Failed to publish payment event", "merchantOid", cb.MerchantOID, "error", err)
		}
	}

	return nil
}

// GetPayment looks up a payment record for the status endpoints.
func (s *Service) GetPayment(ctx context.Context, merchantOID string) (*models.PaymentRecord, error) {
	return s.store.FindByMerchantOID(ctx, merchantOID)
}
