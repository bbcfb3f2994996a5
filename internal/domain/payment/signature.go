package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Verifier checks payment confirmation signatures against a shared gateway
// secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given gateway secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Sign returns the hex-encoded HMAC-SHA256 of "{orderRef}|{paymentRef}",
// the signature scheme the gateway uses for payment confirmations.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderRef))
	mac.Write([]byte("|"))
	mac.Write([]byte(paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected signature and compares it byte-for-byte in
// constant time against the supplied one.
func (v *Verifier) Verify(orderRef, paymentRef, signature string) bool {
	expected := v.Sign(orderRef, paymentRef)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
