package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SignaturePrefix precedes the hex digest in the X-Signature header.
const SignaturePrefix = "sha256="

// SignPayload computes the delivery signature for a serialized payload.
// The signed message is "{timestampMs}.{payload}" and the result is the
// hex HMAC-SHA256 digest prefixed with "sha256=".
func SignPayload(payload []byte, secret string, timestampMs int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestampMs, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature against the payload using a
// constant-time comparison.
func VerifySignature(payload []byte, secret string, timestampMs int64, signature string) bool {
	expected := SignPayload(payload, secret, timestampMs)
	return hmac.Equal([]byte(expected), []byte(signature))
}
