package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Client talks to the hosted payment platform's REST API. Credit amounts ride
// on payment-intent metadata so the sync path never needs price tables.
type Client struct {
	APIKey     string
	APIURL     string
	SuccessURL string
	CancelURL  string

	HTTPClient *http.Client
}

func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		APIKey:     cfg.APIKey,
		APIURL:     strings.TrimRight(cfg.APIURL, "/"),
		SuccessURL: cfg.SuccessURL,
		CancelURL:  cfg.CancelURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// PaymentIntent is the subset of the platform's intent object the sync needs.
type PaymentIntent struct {
	ID          string            `json:"id"`
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Metadata    map[string]string `json:"metadata"`
}

// Credits resolves the credit amount declared on the intent's metadata.
func (pi PaymentIntent) Credits() int {
	n, err := strconv.Atoi(pi.Metadata["credits"])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CheckoutSession is the redirect target for a credit purchase.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Customer is the platform-side billing identity for a user.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CreateCustomer registers a billing identity for the given user.
func (c *Client) CreateCustomer(ctx context.Context, email, identityID string) (*Customer, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[identity_id]", identityID)

	var customer Customer
	if err := c.post(ctx, "/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateCheckoutSession opens a hosted checkout for a credit pack.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID string, credits int, amountCents int64, currency string) (*CheckoutSession, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("mode", "payment")
	form.Set("success_url", c.SuccessURL)
	form.Set("cancel_url", c.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("%d interview credits", credits))
	form.Set("payment_intent_data[metadata][credits]", strconv.Itoa(credits))

	var session CheckoutSession
	if err := c.post(ctx, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListSucceededPaymentIntents fetches all succeeded intents for a customer.
func (c *Client) ListSucceededPaymentIntents(ctx context.Context, customerID string) ([]PaymentIntent, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}

	endpoint := fmt.Sprintf("%s/payment_intents?customer=%s&limit=100", c.APIURL, url.QueryEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment api status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var listResp struct {
		Data []PaymentIntent `json:"data"`
	}
	if err := json.Unmarshal(body, &listResp); err != nil {
		return nil, fmt.Errorf("decode payment intent list: %w", err)
	}

	succeeded := make([]PaymentIntent, 0, len(listResp.Data))
	for _, pi := range listResp.Data {
		if pi.Status == "succeeded" {
			succeeded = append(succeeded, pi)
		}
	}
	return succeeded, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("PAYMENT_API_KEY is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment api status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return json.Unmarshal(body, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
