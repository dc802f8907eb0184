package extract

import (
	"fmt"
	"strings"
)

// Reviews navigates to a detail page and returns up to max review
// snippets. Used by taxonomy discovery, which needs review text without
// the full extraction pass.
func Reviews(page Page, url string, max int) ([]string, error) {
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitVisible(selFeedbackSummary); err != nil {
		return nil, fmt.Errorf("feedback section never appeared: %w", err)
	}

	texts, err := page.Texts(selFeedbackArticle)
	if err != nil {
		return nil, fmt.Errorf("read reviews: %w", err)
	}

	reviews := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			reviews = append(reviews, t)
		}
		if len(reviews) >= max {
			break
		}
	}
	return reviews, nil
}

// ReviewBatch pairs a source URL with its review snippets for analysis
// payloads.
type ReviewBatch struct {
	URL     string   `json:"url"`
	Reviews []string `json:"reviews"`
}
