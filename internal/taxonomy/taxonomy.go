// Package taxonomy defines the pros/cons topic taxonomy used to steer the
// enrichment and evaluation prompts.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Topic is one taxonomy key with its prompt-facing description.
type Topic struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// Taxonomy is the full pros/cons key set.
type Taxonomy struct {
	Pros []Topic `json:"pros"`
	Cons []Topic `json:"cons"`
}

// Default returns the built-in taxonomy. A taxonomy file, when configured,
// replaces it entirely.
func Default() Taxonomy {
	return Taxonomy{
		Pros: []Topic{
			{Topic: "atmosphere", Description: "general vibe and feel of the place"},
			{Topic: "scenery", Description: "views, nature, surroundings"},
			{Topic: "staff", Description: "friendliness and helpfulness of hosts or staff"},
			{Topic: "facilities", Description: "overall quality of on-site facilities"},
			{Topic: "showers", Description: "shower availability and quality"},
			{Topic: "laundry", Description: "laundry availability and quality"},
			{Topic: "pitches", Description: "size, levelness and quality of pitches"},
			{Topic: "value", Description: "price relative to what is offered"},
			{Topic: "location", Description: "proximity to towns, beaches, trails"},
			{Topic: "supplies", Description: "shops, bread service, supplies nearby"},
			{Topic: "utilities", Description: "water, electricity, grey water disposal"},
			{Topic: "safety", Description: "feeling of security on site"},
			{Topic: "pets", Description: "pet friendliness"},
			{Topic: "family", Description: "suitability for children and families"},
		},
		Cons: []Topic{
			{Topic: "noise", Description: "road, train or neighbour noise"},
			{Topic: "cleanliness", Description: "dirty sanitary blocks or grounds"},
			{Topic: "broken_facilities", Description: "facilities out of order"},
			{Topic: "terrain", Description: "mud, slope, poor ground conditions"},
			{Topic: "lack_of_shade", Description: "no shelter from sun"},
			{Topic: "access_issues", Description: "narrow roads, barriers, hard to reach"},
			{Topic: "price", Description: "overpriced for what is offered"},
			{Topic: "wifi", Description: "missing or unusable wifi"},
			{Topic: "pests", Description: "mosquitoes, flies, rodents"},
			{Topic: "rules", Description: "restrictive or unclear rules"},
		},
	}
}

// Load reads a taxonomy JSON file.
func Load(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	var t Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	if len(t.Pros) == 0 && len(t.Cons) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy %s defines no topics", path)
	}
	return t, nil
}

// PromptLines renders the pros and cons keys as prompt bullet lists.
func (t Taxonomy) PromptLines() (pros string, cons string) {
	return promptList(t.Pros), promptList(t.Cons)
}

// Keys returns the flat key sets for evaluation scoring.
func (t Taxonomy) Keys() (pros []string, cons []string) {
	for _, p := range t.Pros {
		pros = append(pros, p.Topic)
	}
	for _, c := range t.Cons {
		cons = append(cons, c.Topic)
	}
	return pros, cons
}

func promptList(topics []Topic) string {
	lines := make([]string, 0, len(topics))
	for _, t := range topics {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Topic, t.Description))
	}
	return strings.Join(lines, "\n")
}
