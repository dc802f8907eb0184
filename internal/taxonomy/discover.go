package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Suggestion is one proposed taxonomy extension from a discovery pass.
type Suggestion struct {
	SuggestedKey string `json:"suggested_key"`
	Reasoning    string `json:"reasoning"`
	ExampleQuote string `json:"example_quote"`
}

// DiscoveryReport is the persisted output of a discovery run.
type DiscoveryReport struct {
	DiscoveryTimestamp string       `json:"discovery_timestamp"`
	TotalSuggestions   int          `json:"total_suggestions"`
	Suggestions        []Suggestion `json:"suggestions"`
}

// NewDiscoveryReport wraps suggestions with run metadata.
func NewDiscoveryReport(suggestions []Suggestion) DiscoveryReport {
	return DiscoveryReport{
		DiscoveryTimestamp: time.Now().Format(time.RFC3339),
		TotalSuggestions:   len(suggestions),
		Suggestions:        suggestions,
	}
}

// Save writes the report as indented JSON.
func (r DiscoveryReport) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal discovery report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write discovery report %s: %w", path, err)
	}
	return nil
}

// DiscoverySystemInstruction renders the instruction asking the model for
// review themes that do not fit the current taxonomy.
func DiscoverySystemInstruction(tax Taxonomy) string {
	pros, cons := tax.PromptLines()
	return fmt.Sprintf(`You are a qualitative data analyst reviewing feedback for motorhome and camping locations.
Your goal is to find themes that DO NOT fit the current taxonomy.

### CURRENT PRO TOPICS ###
%s

### CURRENT CON TOPICS ###
%s

### TASK ###
1. Identify feedback points too unique or specific for the keys above.
2. For each outlier, suggest a new snake_case key.
3. Extract the exact quote from the review.

### OUTPUT JSON SCHEMA ###
{
  "new_suggestions": [
    {"suggested_key": "string", "reasoning": "string", "example_quote": "string"}
  ]
}
Respond with that JSON object only.`, pros, cons)
}

// ParseSuggestions decodes a discovery response.
func ParseSuggestions(text string) ([]Suggestion, error) {
	var wrapper struct {
		NewSuggestions []Suggestion `json:"new_suggestions"`
	}
	if err := json.Unmarshal([]byte(text), &wrapper); err != nil {
		return nil, fmt.Errorf("parse discovery response: %w", err)
	}
	return wrapper.NewSuggestions, nil
}
