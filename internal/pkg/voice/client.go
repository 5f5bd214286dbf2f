package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Client talks to the hosted WebRTC platform: it mints room access tokens for
// the browser client and drives the recording egress API.
type Client struct {
	APIKey    string
	APISecret string
	APIURL    string

	HTTPClient *http.Client
}

func NewClient(cfg config.VoiceConfig) *Client {
	return &Client{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		APIURL:    strings.TrimRight(cfg.APIURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// videoGrant is the platform's room permission claim.
type videoGrant struct {
	Room     string `json:"room"`
	RoomJoin bool   `json:"roomJoin"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Video videoGrant `json:"video"`
	Name  string     `json:"name,omitempty"`
}

// MintRoomToken issues a short-lived join token for one room. The platform
// validates it against the shared API secret.
func (c *Client) MintRoomToken(roomName, identity, displayName string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.APISecret) == "" {
		return "", errors.New("voice platform credentials are not configured")
	}
	if roomName == "" || identity == "" {
		return "", errors.New("room name and identity are required")
	}

	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.APIKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: videoGrant{Room: roomName, RoomJoin: true},
		Name:  displayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.APISecret))
}

// StartRecording asks the platform to begin a room-composite egress. Returns
// the egress id used to correlate later webhook events.
func (c *Client) StartRecording(ctx context.Context, roomName string) (string, error) {
	token, err := c.MintRoomToken(roomName, "egress-service", "", 10*time.Minute)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"room_name":   roomName,
		"audio_only":  false,
		"file_output": map[string]string{"filepath": fmt.Sprintf("recordings/%s.mp4", roomName)},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/egress/room_composite", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("egress api status %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		EgressID string `json:"egress_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode egress response: %w", err)
	}
	return out.EgressID, nil
}
