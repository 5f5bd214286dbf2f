package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vysahq/vysa-server/app/models"
	"github.com/vysahq/vysa-server/internal/pkg/config"
)

const testWebhookKey = "identity-test-key"

func identityTestSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte(testWebhookKey))
}

func signIdentityPayload(msgID, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookKey))
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postIdentityEvent(t *testing.T, app *fiber.App, payload []byte, sign bool) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/identity", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	msgID := "msg_1"
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req.Header.Set("webhook-id", msgID)
	req.Header.Set("webhook-timestamp", timestamp)
	if sign {
		req.Header.Set("webhook-signature", signIdentityPayload(msgID, timestamp, payload))
	} else {
		req.Header.Set("webhook-signature", "v1,bm90LXZhbGlk")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func setupIdentityApp(t *testing.T) *fiber.App {
	t.Helper()
	Initialize(&Services{Cfg: &config.Config{
		Identity: config.IdentityConfig{WebhookSecret: identityTestSecret()},
	}})
	app := fiber.New()
	app.Post("/webhooks/identity", HandleIdentityWebhook)
	return app
}

func TestIdentityWebhookCreatesUser(t *testing.T) {
	db := setupControllerDB(t)
	app := setupIdentityApp(t)

	payload := []byte(`{
		"type": "user.created",
		"data": {
			"id": "idn_new",
			"first_name": "Asha",
			"last_name": "Rao",
			"email_addresses": [{"email_address": "asha@example.com"}]
		}
	}`)
	assert.Equal(t, fiber.StatusOK, postIdentityEvent(t, app, payload, true))

	var user models.User
	require.NoError(t, db.Where("identity_id = ?", "idn_new").First(&user).Error)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "Asha Rao", user.Name)
}

func TestIdentityWebhookUpdateKeepsCredits(t *testing.T) {
	db := setupControllerDB(t)
	app := setupIdentityApp(t)

	existing := &models.User{IdentityID: "idn_upd", Email: "old@example.com", Credits: 40, Role: models.ROLE_USER}
	require.NoError(t, db.Create(existing).Error)

	payload := []byte(`{
		"type": "user.updated",
		"data": {"id": "idn_upd", "email_addresses": [{"email_address": "new@example.com"}]}
	}`)
	assert.Equal(t, fiber.StatusOK, postIdentityEvent(t, app, payload, true))

	var user models.User
	require.NoError(t, db.Where("identity_id = ?", "idn_upd").First(&user).Error)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, 40, user.Credits)
}

func TestIdentityWebhookDeletesUser(t *testing.T) {
	db := setupControllerDB(t)
	app := setupIdentityApp(t)

	existing := &models.User{IdentityID: "idn_del", Role: models.ROLE_USER}
	require.NoError(t, db.Create(existing).Error)

	payload := []byte(`{"type": "user.deleted", "data": {"id": "idn_del"}}`)
	assert.Equal(t, fiber.StatusOK, postIdentityEvent(t, app, payload, true))

	var count int64
	db.Model(&models.User{}).Where("identity_id = ?", "idn_del").Count(&count)
	assert.Zero(t, count)
}

func TestIdentityWebhookRejectsBadSignature(t *testing.T) {
	setupControllerDB(t)
	app := setupIdentityApp(t)

	payload := []byte(`{"type": "user.created", "data": {"id": "idn_forged"}}`)
	assert.Equal(t, fiber.StatusUnauthorized, postIdentityEvent(t, app, payload, false))
}
