package enrich

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tiago/land-scout/internal/types"
)

// enrichmentSchema is the declared response contract. Price fields must be
// present and either numeric or null; summaries are strings.
const enrichmentSchema = `{
  "type": "object",
  "properties": {
    "parking_min_eur": {"type": ["number", "null"]},
    "parking_max_eur": {"type": ["number", "null"]},
    "electricity_eur": {"type": ["number", "null"]},
    "water_eur": {"type": ["number", "null"]},
    "pros_summary": {"type": "string"},
    "cons_summary": {"type": "string"}
  },
  "required": [
    "parking_min_eur",
    "parking_max_eur",
    "electricity_eur",
    "water_eur",
    "pros_summary",
    "cons_summary"
  ]
}`

var schemaLoader = gojsonschema.NewStringLoader(enrichmentSchema)

// ParseEnrichment validates and decodes a model response. The text is
// cleaned of markdown fences first; models wrap JSON in code blocks even
// when told not to.
func ParseEnrichment(text string) (types.Enrichment, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return types.Enrichment{}, fmt.Errorf("empty response")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return types.Enrichment{}, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return types.Enrichment{}, fmt.Errorf("response violates schema: %s", strings.Join(msgs, "; "))
	}

	var enrichment types.Enrichment
	if err := json.Unmarshal([]byte(cleaned), &enrichment); err != nil {
		return types.Enrichment{}, fmt.Errorf("decode response: %w", err)
	}
	return enrichment, nil
}

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a potential language identifier on the first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
