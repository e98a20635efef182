// Package oracle provides LLM-backed arbitration for ambiguous event matches.
// The arbiter receives the internal event plus the full ranked candidate list
// and returns a structured verdict selecting one candidate or none.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jv92admin/ryesvp-sub000/internal/service"
)

// Arbiter settles ambiguous event matches.
type Arbiter interface {
	// Arbitrate returns a verdict for the given request. An error means the
	// oracle could not produce a verdict at all; callers decide whether to
	// treat that as no-match.
	Arbitrate(ctx context.Context, req service.ArbitrationRequest) (service.ArbitrationResult, error)

	// Enabled reports whether the arbiter can actually reach an oracle.
	Enabled() bool
}

// Config holds configuration for creating an arbiter.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// NewArbiter creates an arbiter based on the configured provider. An empty
// provider or missing API key yields the noop arbiter so reconciliation can
// run without oracle access.
func NewArbiter(cfg Config) (Arbiter, error) {
	if cfg.Provider == "" || cfg.APIKey == "" {
		return &noopArbiter{}, nil
	}

	switch cfg.Provider {
	case "openai":
		return newOpenAIArbiter(cfg)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

// noopArbiter declines every arbitration. Used when no oracle is configured.
type noopArbiter struct{}

func (n *noopArbiter) Enabled() bool { return false }

func (n *noopArbiter) Arbitrate(_ context.Context, _ service.ArbitrationRequest) (service.ArbitrationResult, error) {
	return service.ArbitrationResult{SelectedIndex: 0, Rationale: "no oracle configured"}, nil
}

// buildPrompt renders the arbitration request as a numbered candidate list.
// Indices are 1-based so the verdict's zero value means no match.
func buildPrompt(req service.ArbitrationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Our event listing:\n")
	fmt.Fprintf(&b, "  Title: %s\n", req.EventTitle)
	if req.VenueName != "" {
		fmt.Fprintf(&b, "  Venue: %s\n", req.VenueName)
	}
	if !req.EventTime.IsZero() {
		fmt.Fprintf(&b, "  Date: %s\n", req.EventTime.Format("Monday, January 2, 2006 at 3:04 PM"))
	}

	fmt.Fprintf(&b, "\nTicketing catalog candidates for the same venue and day:\n")
	for i, c := range req.Candidates {
		fmt.Fprintf(&b, "  %d. %s (title similarity %.2f", i+1, c.Name, c.Similarity)
		if c.StartsAt != nil {
			fmt.Fprintf(&b, ", starts %s", c.StartsAt.Format("3:04 PM"))
		}
		fmt.Fprintf(&b, ")\n")
	}

	fmt.Fprintf(&b, `
Decide which candidate, if any, is the same real-world event as our listing.
Titles may differ in wording, abbreviations, or supporting act billing.

Respond with a JSON object:
{
  "match": <candidate number, or 0 if none match>,
  "preferExternalTitle": <true if the candidate's title is clearly more complete and should be displayed instead of ours>,
  "reason": "<one sentence>"
}`)

	return b.String()
}

// parseVerdict extracts the structured verdict from the oracle's response
// content, tolerating markdown code fences around the JSON.
func parseVerdict(content string, candidateCount int) (service.ArbitrationResult, error) {
	content = cleanMarkdownWrapper(content)

	var verdict struct {
		Match               int    `json:"match"`
		PreferExternalTitle bool   `json:"preferExternalTitle"`
		Reason              string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return service.ArbitrationResult{}, fmt.Errorf("failed to parse verdict JSON: %w", err)
	}

	if verdict.Match < 0 || verdict.Match > candidateCount {
		return service.ArbitrationResult{}, fmt.Errorf("verdict selected candidate %d of %d", verdict.Match, candidateCount)
	}

	return service.ArbitrationResult{
		SelectedIndex:       verdict.Match,
		PreferExternalTitle: verdict.PreferExternalTitle,
		Rationale:           verdict.Reason,
	}, nil
}

// cleanMarkdownWrapper strips a surrounding markdown code fence, which some
// models add despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
