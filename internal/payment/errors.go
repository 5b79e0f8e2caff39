package payment

import "errors"

var (
	// ErrMalformedRequest means a required callback field is missing or
	// invalid. Raised before any digest computation.
	ErrMalformedRequest = errors.New("malformed callback request")

	// ErrInvalidSignature means the supplied digest does not match the one
	// recomputed from the payload and the merchant credentials.
	ErrInvalidSignature = errors.New("invalid callback signature")

	// ErrRecordNotFound means no payment record exists for the merchant
	// order id.
	ErrRecordNotFound = errors.New("payment record not found")

	// ErrStoreUnavailable means the record store failed transiently. The
	// provider retries on any non-2xx response, so this maps to a 500.
	ErrStoreUnavailable = errors.New("payment store unavailable")
)
