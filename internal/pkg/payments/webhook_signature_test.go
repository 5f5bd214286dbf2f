package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	secret := "whsec_test"
	now := time.Now()

	header := signPayload(payload, secret, now)
	if !verifyWebhookSignatureAt(payload, header, secret, now) {
		t.Fatalf("expected valid signature to verify")
	}

	if verifyWebhookSignatureAt(payload, header, "whsec_other", now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if verifyWebhookSignatureAt([]byte(`{"tampered":true}`), header, secret, now) {
		t.Fatalf("expected tampered payload to fail")
	}
}

func TestVerifyWebhookSignature_RejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	signedAt := time.Now().Add(-10 * time.Minute)

	header := signPayload(payload, secret, signedAt)
	if verifyWebhookSignatureAt(payload, header, secret, time.Now()) {
		t.Fatalf("expected stale signature to fail")
	}
}

func TestVerifyWebhookSignature_MalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Now()

	headers := []string{
		"",
		"v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		"t=notanumber,v1=deadbeef",
	}
	for _, h := range headers {
		if verifyWebhookSignatureAt(payload, h, secret, now) {
			t.Fatalf("expected header %q to fail", h)
		}
	}
}
