package payment

import (
	"fmt"
	"net/url"
	"strconv"

	"alo17-service/internal/models"
)

// Callback carries the fields PayTR posts to the webhook endpoint,
// form-encoded.
type Callback struct {
	MerchantOID string
	Status      string // "success" or "failed"
	TotalAmount string // numeric string as formatted by the provider
	Hash        string // base64 digest over the other three fields
}

// ParseCallback extracts and validates the required webhook fields.
// Validation happens before any digest work so a broken payload never
// reaches the signature check.
func ParseCallback(form url.Values) (Callback, error) {
	cb := Callback{
		MerchantOID: form.Get("merchant_oid"),
		Status:      form.Get("status"),
		TotalAmount: form.Get("total_amount"),
		Hash:        form.Get("hash"),
	}

	for field, value := range map[string]string{
		"merchant_oid": cb.MerchantOID,
		"status":       cb.Status,
		"total_amount": cb.TotalAmount,
		"hash":         cb.Hash,
	} {
		if value == "" {
			return Callback{}, fmt.Errorf("%w: missing field %q", ErrMalformedRequest, field)
		}
	}

	if !models.PaymentStatus(cb.Status).IsCallbackStatus() {
		return Callback{}, fmt.Errorf("%w: unknown status %q", ErrMalformedRequest, cb.Status)
	}

	if _, err := strconv.ParseFloat(cb.TotalAmount, 64); err != nil {
		return Callback{}, fmt.Errorf("%w: total_amount %q is not numeric", ErrMalformedRequest, cb.TotalAmount)
	}

	return cb, nil
}
