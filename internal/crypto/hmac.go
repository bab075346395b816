package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Webhook signature headers.
const (
	SignatureHeader = "X-Pumpbot-Signature"
	TimestampHeader = "X-Pumpbot-Timestamp"
)

// PayloadSigner signs outbound webhook bodies so receivers can verify
// their origin. The signature is hex(HMAC-SHA256(secret, timestamp + "." + body)).
type PayloadSigner struct {
	secret []byte
	now    func() time.Time
}

// NewPayloadSigner returns a signer for secret.
func NewPayloadSigner(secret string) *PayloadSigner {
	return &PayloadSigner{secret: []byte(secret), now: time.Now}
}

// Headers returns the signature headers for body.
func (p *PayloadSigner) Headers(body []byte) map[string]string {
	ts := strconv.FormatInt(p.now().Unix(), 10)
	return map[string]string{
		TimestampHeader: ts,
		SignatureHeader: p.sign(ts, body),
	}
}

// Verify checks signature against body and ts in constant time.
func (p *PayloadSigner) Verify(ts string, body []byte, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	got, _ := hex.DecodeString(p.sign(ts, body))
	return hmac.Equal(want, got)
}

func (p *PayloadSigner) sign(ts string, body []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// String returns a redacted representation suitable for logging.
func (p *PayloadSigner) String() string {
	return "PayloadSigner{secret=****}"
}
