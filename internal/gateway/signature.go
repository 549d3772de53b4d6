package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignatureVerifier checks checkout signatures with the gateway's shared secret.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Sign returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func (v *SignatureVerifier) Sign(orderID, paymentID string) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func (v *SignatureVerifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || signature == "" {
		return false
	}
	expected := v.Sign(orderID, paymentID)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
