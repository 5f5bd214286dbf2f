package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Identity-provider webhook event types this service reacts to.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// MalformedEventError marks an identity webhook body that failed validation.
type MalformedEventError struct {
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed identity event: %s", e.Reason)
}

// UserEvent is the normalized shape of a user-lifecycle webhook.
type UserEvent struct {
	Type       string
	IdentityID string
	Email      string
	Name       string
}

type rawUserEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	} `json:"data"`
}

// ParseUserEvent validates and normalizes an identity webhook body.
func ParseUserEvent(raw []byte) (*UserEvent, error) {
	var ev rawUserEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, &MalformedEventError{Reason: err.Error()}
	}
	if ev.Type == "" {
		return nil, &MalformedEventError{Reason: "type is missing"}
	}
	if ev.Data.ID == "" {
		return nil, &MalformedEventError{Reason: "data.id is missing"}
	}

	out := &UserEvent{
		Type:       ev.Type,
		IdentityID: ev.Data.ID,
		Name:       strings.TrimSpace(ev.Data.FirstName + " " + ev.Data.LastName),
	}
	if len(ev.Data.EmailAddresses) > 0 {
		out.Email = ev.Data.EmailAddresses[0].EmailAddress
	}
	return out, nil
}

// VerifyWebhookSignature checks the provider's signature scheme: HMAC-SHA256
// over "<id>.<timestamp>.<payload>", base64-encoded, possibly several
// space-separated "v1,<sig>" candidates in the header.
func VerifyWebhookSignature(payload []byte, msgID, timestamp, signatureHeader, secret string) bool {
	if msgID == "" || timestamp == "" || signatureHeader == "" || secret == "" {
		return false
	}

	// Secrets are distributed prefixed; only the part after the underscore
	// is key material.
	key := secret
	if i := strings.IndexByte(secret, '_'); i >= 0 {
		key = secret[i+1:]
	}
	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		keyBytes = []byte(key)
	}

	mac := hmac.New(sha256.New, keyBytes)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		if hmac.Equal(expected, sig) {
			return true
		}
	}
	return false
}
