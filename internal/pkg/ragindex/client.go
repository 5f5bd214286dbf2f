package ragindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

// Client talks to the hosted document-indexing platform. Each user owns one
// partition; queries made by the voice agent are scoped to that partition so
// an interview only retrieves the interviewee's own documents.
type Client struct {
	APIKey string
	APIURL string

	HTTPClient *http.Client
}

func NewClient(cfg config.RagIndexConfig) *Client {
	return &Client{
		APIKey: cfg.APIKey,
		APIURL: strings.TrimRight(cfg.APIURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// UploadResult is the platform's handle for an accepted document.
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// Upload submits one document into a partition. Indexing continues
// asynchronously; completion arrives on the status webhook.
func (c *Client) Upload(ctx context.Context, partition, fileName string, body io.Reader) (*UploadResult, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("RAGINDEX_API_KEY is not configured")
	}
	if partition == "" || fileName == "" {
		return nil, errors.New("partition and file name are required")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("partition", partition); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ragindex api status %d: %s", resp.StatusCode, string(respBody))
	}

	var result UploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

// Delete removes a document from the platform.
func (c *Client) Delete(ctx context.Context, documentID string) error {
	if documentID == "" {
		return errors.New("document id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.APIURL+"/documents/"+documentID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A 404 means the platform already dropped the document; treat as done.
	if (resp.StatusCode < 200 || resp.StatusCode > 299) && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("ragindex api status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// StatusEvent is the indexing status webhook payload.
type StatusEvent struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// ParseStatusEvent decodes a status webhook body.
func ParseStatusEvent(raw []byte) (*StatusEvent, error) {
	var ev StatusEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("malformed ragindex event: %w", err)
	}
	if ev.DocumentID == "" || ev.Status == "" {
		return nil, fmt.Errorf("malformed ragindex event: document_id and status are required")
	}
	return &ev, nil
}
