package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeSignature returns the hex HMAC-SHA256 of "orderID|paymentID" keyed
// with the gateway secret, as sent by the checkout on success.
func ComputeSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a checkout signature in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	expected := ComputeSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
