// Package payment verifies checkout signatures returned by the payment gateway.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured is returned when no gateway key secret is set.
	ErrNotConfigured = errors.New("payment: key secret not configured")
	// ErrInvalidSignature is returned when the signature does not match the order and payment ids.
	ErrInvalidSignature = errors.New("payment: signature mismatch")
	// ErrMissingFields is returned when any of the signed values is empty.
	ErrMissingFields = errors.New("payment: order id, payment id and signature are required")
)

// Verifier checks hex(HMAC_SHA256(secret, orderId + "|" + paymentId)).
type Verifier struct {
	secret []byte
}

// NewVerifier returns a verifier keyed with the gateway key secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the expected signature for an order/payment pair.
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature to the expected value in constant time.
func (v *Verifier) Verify(orderID, paymentID, signature string) error {
	if len(v.secret) == 0 {
		return ErrNotConfigured
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrMissingFields
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return ErrInvalidSignature
	}
	want, _ := hex.DecodeString(v.Sign(orderID, paymentID))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}
