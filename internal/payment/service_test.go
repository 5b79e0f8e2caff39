package payment

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"testing"

	"alo17-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store with the same contract as the Postgres
// repository: single-key updates, ErrRecordNotFound on unknown order ids.
type fakeStore struct {
	records     map[string]*models.PaymentRecord
	updateCalls int
	failUpdates bool
}

func newFakeStore(records ...*models.PaymentRecord) *fakeStore {
	s := &fakeStore{records: make(map[string]*models.PaymentRecord)}
	for _, r := range records {
		s.records[r.MerchantOID] = r
	}
	return s
}

func (s *fakeStore) FindByMerchantOID(_ context.Context, merchantOID string) (*models.PaymentRecord, error) {
	record, ok := s.records[merchantOID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, merchantOID string, status models.PaymentStatus) error {
	if s.failUpdates {
		return errors.New("connection refused")
	}
	record, ok := s.records[merchantOID]
	if !ok {
		return ErrRecordNotFound
	}
	s.updateCalls++
	record.Status = status
	return nil
}

func validForm(signer *Signer, merchantOID, status, amount string) url.Values {
	form := url.Values{}
	form.Set("merchant_oid", merchantOID)
	form.Set("status", status)
	form.Set("total_amount", amount)
	form.Set("hash", signer.CallbackDigest(merchantOID, status, amount))
	return form
}

func newTestService(store Store) (*Service, *Signer) {
	signer := NewSigner("merchant-key", "merchant-salt")
	return NewService(signer, store, nil), signer
}

func TestHandleCallbackTransitionsPendingToSuccess(t *testing.T) {
	store := newFakeStore(&models.PaymentRecord{
		MerchantOID: "ORDER1",
		Status:      models.PaymentStatusPending,
		Amount:      "100.00",
	})
	service, signer := newTestService(store)

	err := service.HandleCallback(context.Background(), validForm(signer, "ORDER1", "success", "100.00"))

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, store.records["ORDER1"].Status)
}

func TestHandleCallbackIsIdempotent(t *testing.T) {
	store := newFakeStore(&models.PaymentRecord{
		MerchantOID: "ORDER1",
		Status:      models.PaymentStatusPending,
		Amount:      "100.00",
	})
	service, signer := newTestService(store)
	form := validForm(signer, "ORDER1", "success", "100.00")

	// The provider retries webhooks; an identical replay must succeed and
	// converge on the same state.
	require.NoError(t, service.HandleCallback(context.Background(), form))
	require.NoError(t, service.HandleCallback(context.Background(), form))

	assert.Equal(t, models.PaymentStatusSuccess, store.records["ORDER1"].Status)
}

func TestHandleCallbackTamperedHashWritesNothing(t *testing.T) {
	store := newFakeStore(&models.PaymentRecord{
		MerchantOID: "ORDER1",
		Status:      models.PaymentStatusPending,
		Amount:      "100.00",
	})
	service, signer := newTestService(store)

	form := validForm(signer, "ORDER1", "success", "100.00")
	raw, err := base64.StdEncoding.DecodeString(form.Get("hash"))
	require.NoError(t, err)
	raw[5] ^= 0x80 // single bit flip
	form.Set("hash", base64.StdEncoding.EncodeToString(raw))

	err = service.HandleCallback(context.Background(), form)

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 0, store.updateCalls, "verification failure must not touch the store")
	assert.Equal(t, models.PaymentStatusPending, store.records["ORDER1"].Status)
}

func TestHandleCallbackMissingFields(t *testing.T) {
	store := newFakeStore()
	service, signer := newTestService(store)

	for _, field := range []string{"merchant_oid", "status", "total_amount", "hash"} {
		form := validForm(signer, "ORDER1", "success", "100.00")
		form.Del(field)

		err := service.HandleCallback(context.Background(), form)

		assert.ErrorIs(t, err, ErrMalformedRequest, "missing %s", field)
	}
	assert.Equal(t, 0, store.updateCalls)
}

func TestHandleCallbackRejectsUnknownStatusToken(t *testing.T) {
	store := newFakeStore()
	service, signer := newTestService(store)

	// "pending" is a record state, never a provider callback status
	form := validForm(signer, "ORDER1", "pending", "100.00")

	err := service.HandleCallback(context.Background(), form)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestHandleCallbackRejectsNonNumericAmount(t *testing.T) {
	store := newFakeStore()
	service, signer := newTestService(store)

	form := validForm(signer, "ORDER1", "success", "lots")

	err := service.HandleCallback(context.Background(), form)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestHandleCallbackUnknownOrder(t *testing.T) {
	store := newFakeStore()
	service, signer := newTestService(store)

	err := service.HandleCallback(context.Background(), validForm(signer, "GHOST", "failed", "50.00"))

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestHandleCallbackStoreFailure(t *testing.T) {
	store := newFakeStore(&models.PaymentRecord{
		MerchantOID: "ORDER1",
		Status:      models.PaymentStatusPending,
		Amount:      "100.00",
	})
	store.failUpdates = true
	service, signer := newTestService(store)

	err := service.HandleCallback(context.Background(), validForm(signer, "ORDER1", "success", "100.00"))

	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) PublishPaymentStatus(_ context.Context, merchantOID string, status models.PaymentStatus) error {
	p.published = append(p.published, merchantOID+":"+status.String())
	return nil
}

func TestHandleCallbackPublishesOutcome(t *testing.T) {
	store := newFakeStore(&models.PaymentRecord{
		MerchantOID: "ORDER1",
		Status:      models.PaymentStatusPending,
		Amount:      "100.00",
	})
	signer := NewSigner("merchant-key", "merchant-salt")
	publisher := &recordingPublisher{}
	service := NewService(signer, store, publisher)

	require.NoError(t, service.HandleCallback(context.Background(), validForm(signer, "ORDER1", "failed", "100.00")))

	assert.Equal(t, []string{"ORDER1:failed"}, publisher.published)
}
