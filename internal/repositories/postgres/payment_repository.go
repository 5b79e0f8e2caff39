package postgres

import (
	"context"
	"errors"

	"alo17-service/internal/models"
	"alo17-service/internal/payment"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db}
}

func (r *PaymentRepository) Create(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *PaymentRepository) FindByMerchantOID(ctx context.Context, merchantOID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).First(&record, "merchant_oid = ?", merchantOID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// UpdateStatus applies a status to the record keyed by merchant order id.
// The write is a single UPDATE by unique key, so concurrent deliveries for
// the same order serialize on the row; rewriting an already-applied status
// is a successful no-op.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, merchantOID string, status models.PaymentStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PaymentRecord
		if err := tx.Select("id").First(&record, "merchant_oid = ?", merchantOID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return payment.ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&models.PaymentRecord{}).
			Where("merchant_oid = ?", merchantOID).
			Update("status", status).Error
	})
}
