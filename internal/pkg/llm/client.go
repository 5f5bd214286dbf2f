package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/vysahq/vysa-server/internal/pkg/config"
)

const callTimeout = 45 * time.Second

// Client wraps the Gemini API for the two completion tasks this service
// needs: the charge classifier and the interview report generator.
type Client struct {
	genai *genai.Client
	cfg   config.LLMConfig
}

func NewClient(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{genai: client, cfg: cfg}, nil
}

// generateText runs one completion with a per-call timeout and returns the
// raw response text.
func (c *Client) generateText(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	result, err := c.genai.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if result == nil {
		return "", errors.New("gemini returned no response")
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("extract gemini response: %w", err)
	}
	if text == "" {
		return "", errors.New("gemini returned empty response")
	}
	return text, nil
}

// stripCodeFence removes a surrounding markdown code fence, which Gemini adds
// around JSON output more often than not.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
