package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultModel is a cost-efficient model; a three-way call on a page of
// comments does not need deep reasoning. Override with HOTDEAL_MODEL.
const defaultModel = "claude-3-5-haiku-20241022"

const classifierTimeout = 15 * time.Second

var (
	// Matches ```json ... ``` fences the model may wrap its reply in.
	codeFenceRegex  = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\n?([\\s\\S]*?)\n?`{3}")
	jsonObjectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// DealClassifier asks an external model whether a deal is worth buying and
// parses its structured verdict.
type DealClassifier struct {
	client *anthropic.Client
	model  string
}

// NewDealClassifier creates a classifier. An empty apiKey falls back to the
// ANTHROPIC_API_KEY environment variable; an empty model to defaultModel.
func NewDealClassifier(apiKey, model string) (*DealClassifier, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	if model == "" {
		model = defaultModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &DealClassifier{client: &client, model: model}, nil
}

// Classify judges the extracted detail text. It never returns an error: a
// failed call or unusable reply yields the JudgmentFailed sentinel, which the
// monitor maps to a manual-review notification instead of silent loss. One
// attempt per item; retrying risks rate limits and duplicate cost more than
// it buys.
func (c *DealClassifier) Classify(ctx context.Context, detailText string) Verdict {
	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	start := time.Now()
	response, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildDealPrompt(detailText))),
		},
	})
	if err != nil {
		slog.Warn("Classifier call failed", "error", err)
		return Verdict{Judgment: JudgmentFailed, Reason: "classifier call failed"}
	}

	var responseText string
	for _, block := range response.Content {
		if block.Type == "text" {
			responseText += block.Text
		}
	}

	verdict := parseVerdict(responseText)
	slog.Debug("Classified deal",
		"judgment", verdict.Judgment,
		"reason", verdict.Reason,
		"duration", time.Since(start),
		"inputTokens", response.Usage.InputTokens,
		"outputTokens", response.Usage.OutputTokens)
	return verdict
}

// buildDealPrompt embeds the truncated detail text in the judgment
// instructions, asking for a strict single-object JSON reply.
func buildDealPrompt(detailText string) string {
	return fmt.Sprintf(`You are a hot deal analyst. Read the collected post content below and judge whether this is a deal worth buying. If there are no comments to go on, say you cannot decide.

[Collected content]
%s

[Criteria]
- POSITIVE: cheap price, people reporting purchases, praise, "I'm in" reactions
- NEGATIVE: overpriced, sold out, poor reviews, looks like shilling
- UNKNOWN: not enough comments or information to decide

Reply with exactly one JSON object with two fields and nothing else:
{"judgment": "POSITIVE/NEGATIVE/UNKNOWN", "reason": "one-line summary"}

Do NOT wrap the JSON in markdown code fences.`, detailText)
}

// parseVerdict parses the model reply, tolerating surrounding code fences
// and prose. Anything that does not yield one of the three judgment tokens
// maps to the JudgmentFailed sentinel.
func parseVerdict(text string) Verdict {
	cleaned := strings.TrimSpace(text)
	if m := codeFenceRegex.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	if v, ok := tryParseVerdict(cleaned); ok {
		return v
	}

	// Last resort: pull the first object out of mixed content.
	if extracted := jsonObjectRegex.FindString(cleaned); extracted != "" {
		if v, ok := tryParseVerdict(extracted); ok {
			return v
		}
	}

	slog.Warn("Unparseable classifier reply", "reply", truncateText(text, 200))
	return Verdict{Judgment: JudgmentFailed, Reason: "unparseable classifier reply"}
}

func tryParseVerdict(text string) (Verdict, bool) {
	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Verdict{}, false
	}
	switch v.Judgment {
	case JudgmentPositive, JudgmentNegative, JudgmentUnknown:
		return v, true
	}
	return Verdict{}, false
}
