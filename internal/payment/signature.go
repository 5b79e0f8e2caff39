package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signer computes and verifies PayTR callback digests. The provider signs
// merchant_oid + merchant_salt + status + total_amount with HMAC-SHA256
// under the merchant key and base64-encodes the result.
type Signer struct {
	merchantKey  []byte
	merchantSalt []byte
}

func NewSigner(merchantKey, merchantSalt string) *Signer {
	return &Signer{
		merchantKey:  []byte(merchantKey),
		merchantSalt: []byte(merchantSalt),
	}
}

// CallbackDigest returns the expected digest for a webhook payload.
func (s *Signer) CallbackDigest(merchantOID, status, totalAmount string) string {
	mac := hmac.New(sha256.New, s.merchantKey)
	mac.Write([]byte(merchantOID))
	mac.Write(s.merchantSalt)
	mac.Write([]byte(status))
	mac.Write([]byte(totalAmount))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyCallback compares the supplied digest against the expected one in
// constant time.
func (s *Signer) VerifyCallback(cb Callback) bool {
	expected := s.CallbackDigest(cb.MerchantOID, cb.Status, cb.TotalAmount)
	return hmac.Equal([]byte(expected), []byte(cb.Hash))
}
