package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid checks if the PaymentStatus is a valid enum value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// IsCallbackStatus reports whether the status is one the payment provider
// may post in a webhook. The provider only ever reports terminal outcomes.
func (s PaymentStatus) IsCallbackStatus() bool {
	return s == PaymentStatusSuccess || s == PaymentStatusFailed
}

/** --------------------ENTITIES-------------------- */
// PaymentRecord tracks one payment attempt, keyed by the provider's
// merchant order id.
type PaymentRecord struct {
	gorm.Model

	MerchantOID string        `gorm:"not null;uniqueIndex" json:"merchantOid"`
	Status      PaymentStatus `gorm:"not null;default:pending" json:"status"`
	Amount      string        `gorm:"not null" json:"amount"` // provider-formatted amount, e.g. "100.00"
	UserID      string        `gorm:"index" json:"userId"`
	ListingID   *string       `json:"listingId,omitempty"` // set when the payment promotes a listing
}

/** -------------------- DTOs -------------------- */
// Response
type PaymentResponse struct {
	MerchantOID string        `json:"merchantOid"`
	Status      PaymentStatus `json:"status"`
	Amount      string        `json:"amount"`
	ListingID   *string       `json:"listingId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (p *PaymentRecord) ToResponse() *PaymentResponse {
	return &PaymentResponse{
		MerchantOID: p.MerchantOID,
		Status:      p.Status,
		Amount:      p.Amount,
		ListingID:   p.ListingID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
