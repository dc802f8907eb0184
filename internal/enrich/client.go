// Package enrich sends raw place payloads to Gemini under a rate limit and
// retry policy and returns normalized enrichment results.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tiago/land-scout/internal/logging"
	"github.com/tiago/land-scout/internal/taxonomy"
	"github.com/tiago/land-scout/internal/types"
)

// Generator abstracts the model call so the retry and parsing logic can be
// tested without the network.
type Generator interface {
	// Generate sends a serialized payload and returns the raw response text.
	Generate(ctx context.Context, payload string) (string, error)
	Close() error
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	system string
}

// NewGeminiGenerator creates a Gemini-backed generator with a fixed system
// instruction and JSON response mode.
func NewGeminiGenerator(ctx context.Context, apiKey, model, systemInstruction string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model, system: systemInstruction}, nil
}

// Generate sends the payload and returns the response text.
func (g *GeminiGenerator) Generate(ctx context.Context, payload string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(g.system)}}

	resp, err := model.GenerateContent(ctx, genai.Text(payload))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return extractTextFromResponse(resp)
}

// Close releases the underlying API client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Options configures a Client.
type Options struct {
	// MinInterval is the fixed minimum delay enforced before every call,
	// sized to stay under the provider's requests-per-minute ceiling.
	MinInterval time.Duration
	// MaxRetries bounds retries on rate-limit-class errors.
	MaxRetries int
	// BackoffUnit is the linear backoff step: attempt * BackoffUnit.
	BackoffUnit time.Duration
	Logger      *logging.Logger
}

// Client wraps a Generator with rate limiting, retry and response parsing.
type Client struct {
	gen    Generator
	opts   Options
	logger *logging.Logger

	mu       sync.Mutex
	lastCall time.Time

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// NewClient builds an enrichment client around a generator.
func NewClient(gen Generator, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffUnit == 0 {
		opts.BackoffUnit = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(false)
	}
	return &Client{gen: gen, opts: opts, logger: opts.Logger, sleep: time.Sleep}
}

// Close releases the generator.
func (c *Client) Close() error {
	return c.gen.Close()
}

// Analyze sends one raw place to the model and returns the parsed
// enrichment. On any terminal failure it returns the empty enrichment and
// the error; callers log and keep going, the pipeline never aborts here.
func (c *Client) Analyze(ctx context.Context, raw types.RawPlace) (types.Enrichment, error) {
	payload, err := json.Marshal(raw)
	if err != nil {
		return types.Enrichment{}, fmt.Errorf("marshal payload for %s: %w", raw.P4NID, err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		c.waitForSlot()

		text, err := c.gen.Generate(ctx, string(payload))
		if err != nil {
			if IsRateLimitError(err) && attempt < c.opts.MaxRetries {
				backoff := time.Duration(attempt) * c.opts.BackoffUnit
				c.logger.Warn("[enrich] Rate limited on %s (attempt %d/%d), backing off %v",
					raw.P4NID, attempt, c.opts.MaxRetries, backoff)
				c.sleep(backoff)
				lastErr = err
				continue
			}
			return types.Enrichment{}, fmt.Errorf("enrichment call for %s: %w", raw.P4NID, err)
		}

		enrichment, err := ParseEnrichment(text)
		if err != nil {
			// A malformed response degrades exactly like a provider error.
			return types.Enrichment{}, fmt.Errorf("enrichment response for %s: %w", raw.P4NID, err)
		}
		return enrichment, nil
	}

	return types.Enrichment{}, fmt.Errorf("enrichment for %s exhausted %d attempts: %w",
		raw.P4NID, c.opts.MaxRetries, lastErr)
}

// waitForSlot enforces the minimum inter-request delay.
func (c *Client) waitForSlot() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed := time.Since(c.lastCall); elapsed < c.opts.MinInterval {
		c.sleep(c.opts.MinInterval - elapsed)
	}
	c.lastCall = time.Now()
}

// IsRateLimitError reports whether an error is rate-limit-class and
// therefore worth retrying.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "resource_exhausted")
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// NewSystemInstruction renders the fixed enrichment instruction for a
// taxonomy. Missing numeric data must come back as null, never zero, so
// "free" stays distinguishable from "unknown" downstream.
func NewSystemInstruction(tax taxonomy.Taxonomy) string {
	pros, cons := tax.PromptLines()
	return fmt.Sprintf(`You are a data analyst for motorhome and camping locations.
You receive one place as JSON: scraped detail fields, a raw price text block, and review snippets.

### TASK ###
1. Normalize pricing into numeric EUR fields. If a price is genuinely free, use 0. If it is not mentioned or unclear, use null. Never substitute 0 for missing data.
2. Summarize the reviews into one short pros sentence and one short cons sentence, grounded in the taxonomy below.

### PRO TOPICS ###
%s

### CON TOPICS ###
%s

### OUTPUT JSON SCHEMA ###
{
  "parking_min_eur": number | null,
  "parking_max_eur": number | null,
  "electricity_eur": number | null,
  "water_eur": number | null,
  "pros_summary": "string",
  "cons_summary": "string"
}
Respond with that JSON object only.`, pros, cons)
}
