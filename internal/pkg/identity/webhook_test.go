package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserEvent(t *testing.T) {
	ev, err := ParseUserEvent([]byte(`{
		"type": "user.created",
		"data": {
			"id": "user_2abc",
			"first_name": "Maria",
			"last_name": "Lopez",
			"email_addresses": [{"email_address": "maria@example.com"}]
		}
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, EventUserCreated, ev.Type)
	assert.Equal(t, "user_2abc", ev.IdentityID)
	assert.Equal(t, "Maria Lopez", ev.Name)
	assert.Equal(t, "maria@example.com", ev.Email)
}

func TestParseUserEvent_Malformed(t *testing.T) {
	for _, raw := range []string{"nope", `{"data":{"id":"u"}}`, `{"type":"user.created","data":{}}`} {
		_, err := ParseUserEvent([]byte(raw))
		var malformed *MalformedEventError
		assert.ErrorAs(t, err, &malformed)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"type":"user.created"}`)
	rawKey := []byte("0123456789abcdef0123456789abcdef")
	secret := "whsec_" + base64.StdEncoding.EncodeToString(rawKey)
	msgID := "msg_1"
	timestamp := "1700000000"

	mac := hmac.New(sha256.New, rawKey)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	sig := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(payload, msgID, timestamp, sig, secret))
	assert.False(t, VerifyWebhookSignature(payload, msgID, timestamp, "v1,AAAA", secret))
	assert.False(t, VerifyWebhookSignature(payload, "msg_2", timestamp, sig, secret))
	assert.False(t, VerifyWebhookSignature(payload, msgID, timestamp, sig, ""))
}
