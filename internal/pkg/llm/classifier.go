package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ChargeInput carries everything the classifier sees about a finished
// interview.
type ChargeInput struct {
	PlannedMinutes int
	ActualSeconds  int
	EndedBy        string
	WordCount      int
	TurnCount      int
	TranscriptText string
}

// ChargeJudgment is the classifier's structured verdict on whether genuine
// practice occurred.
type ChargeJudgment struct {
	ShouldCharge bool    `json:"shouldCharge"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
}

// ClassifyCharge asks the model whether the session had enough genuine
// back-and-forth practice to justify charging credits.
func (c *Client) ClassifyCharge(ctx context.Context, in ChargeInput) (*ChargeJudgment, error) {
	raw, err := c.generateText(ctx, c.cfg.ClassifierModel, buildClassifierPrompt(in))
	if err != nil {
		return nil, err
	}
	return ParseChargeJudgment(raw)
}

// ParseChargeJudgment decodes and validates the classifier output.
func ParseChargeJudgment(raw string) (*ChargeJudgment, error) {
	var judgment ChargeJudgment
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &judgment); err != nil {
		return nil, fmt.Errorf("parse charge judgment: %w", err)
	}
	if strings.TrimSpace(judgment.Reason) == "" {
		return nil, fmt.Errorf("charge judgment missing reason")
	}
	if judgment.Confidence < 0 || judgment.Confidence > 1 {
		return nil, fmt.Errorf("charge judgment confidence %v out of range", judgment.Confidence)
	}
	return &judgment, nil
}

func buildClassifierPrompt(in ChargeInput) string {
	var b strings.Builder
	b.WriteString("You judge whether a visa interview practice session delivered real practice value.\n")
	b.WriteString("A session has value when there was genuine back-and-forth between the applicant and the officer,\n")
	b.WriteString("not when the call dropped, stalled, or only produced greetings.\n\n")
	fmt.Fprintf(&b, "Planned duration: %d minutes\n", in.PlannedMinutes)
	fmt.Fprintf(&b, "Actual duration: %d seconds\n", in.ActualSeconds)
	fmt.Fprintf(&b, "Ended by: %s\n", in.EndedBy)
	fmt.Fprintf(&b, "Word count: %d\n", in.WordCount)
	fmt.Fprintf(&b, "Conversation turns: %d\n\n", in.TurnCount)
	b.WriteString("Transcript:\n")
	b.WriteString(in.TranscriptText)
	b.WriteString("\n\nAnswer with exactly this JSON and nothing else:\n")
	b.WriteString(`{"shouldCharge": true|false, "reason": "<one sentence>", "confidence": <0..1>}`)
	return b.String()
}
