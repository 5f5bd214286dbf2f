package mail

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

	"github.com/gofiber/fiber/v2/log"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Mailer sends transactional email through the hosted email API. Send
// failures are reported to callers but are never allowed to fail the
// operation that triggered the mail.
type Mailer struct {
	APIKey string
	APIURL string
	Sender string

	HTTPClient *http.Client
}

func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{
		APIKey: cfg.APIKey,
		APIURL: strings.TrimRight(cfg.APIURL, "/"),
		Sender: cfg.Sender,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send delivers one HTML email.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(m.APIKey) == "" {
		return errors.New("MAIL_API_KEY is not configured")
	}
	if to == "" {
		return errors.New("recipient is required")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"from":    m.Sender,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.APIURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("mail api status %d: %s", resp.StatusCode, string(body))
	}

	log.Infof("[Mail] Sent %q to %s", subject, to)
	return nil
}
