// Package eval scores the labeling model against a golden review dataset.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tiago/land-scout/internal/enrich"
	"github.com/tiago/land-scout/internal/logging"
)

// GoldenItem is one labeled review from the golden set.
type GoldenItem struct {
	Review string   `json:"review"`
	Pros   []string `json:"pros"`
	Cons   []string `json:"cons"`
}

// Prediction is the model's topic labels for one review.
type Prediction struct {
	Pros []string `json:"pros"`
	Cons []string `json:"cons"`
}

// Metrics are micro-averaged counts over all reviews.
type Metrics struct {
	Samples int
	TP      int
	FP      int
	FN      int
}

// Precision is TP / (TP + FP).
func (m Metrics) Precision() float64 {
	if m.TP+m.FP == 0 {
		return 0
	}
	return float64(m.TP) / float64(m.TP+m.FP)
}

// Recall is TP / (TP + FN).
func (m Metrics) Recall() float64 {
	if m.TP+m.FN == 0 {
		return 0
	}
	return float64(m.TP) / float64(m.TP+m.FN)
}

// F1 is the harmonic mean of precision and recall.
func (m Metrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// LoadGoldenSet reads the golden dataset, optionally truncated to limit.
func LoadGoldenSet(path string, limit int) ([]GoldenItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read golden set %s: %w", path, err)
	}

	var items []GoldenItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse golden set %s: %w", path, err)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UnwrapPredictions parses a model response into a prediction list. Models
// sometimes wrap the list in an object under a conventional key; those
// wrappers are unwrapped rather than rejected.
func UnwrapPredictions(text string) ([]Prediction, error) {
	cleaned := enrich.CleanJSONBlock(text)

	var list []Prediction
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err != nil {
		return nil, fmt.Errorf("response is neither a list nor an object: %w", err)
	}

	for _, key := range []string{"reviews", "data", "results", "output", "items", "analysis"} {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}
	if len(wrapped) == 1 {
		for _, raw := range wrapped {
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}

	return nil, fmt.Errorf("could not find prediction list in wrapped response")
}

// Score micro-averages topic overlap between gold labels and predictions.
// Missing predictions count every gold label as a false negative.
func Score(gold []GoldenItem, preds []Prediction) Metrics {
	m := Metrics{Samples: len(gold)}

	for i, g := range gold {
		goldSet := toSet(append(append([]string{}, g.Pros...), g.Cons...))

		var predSet map[string]struct{}
		if i < len(preds) {
			predSet = toSet(append(append([]string{}, preds[i].Pros...), preds[i].Cons...))
		} else {
			predSet = map[string]struct{}{}
		}

		for k := range predSet {
			if _, ok := goldSet[k]; ok {
				m.TP++
			} else {
				m.FP++
			}
		}
		for k := range goldSet {
			if _, ok := predSet[k]; !ok {
				m.FN++
			}
		}
	}
	return m
}

// Runner drives batched labeling calls against a generator.
type Runner struct {
	gen       enrich.Generator
	batchSize int
	logger    *logging.Logger
}

// NewRunner creates a Runner. batchSize <= 0 sends everything in one call.
func NewRunner(gen enrich.Generator, batchSize int, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.New(false)
	}
	return &Runner{gen: gen, batchSize: batchSize, logger: logger}
}

// Evaluate labels the golden reviews in batches and scores the result.
// A failed batch contributes empty predictions instead of aborting.
func (r *Runner) Evaluate(ctx context.Context, gold []GoldenItem) (Metrics, error) {
	batchSize := r.batchSize
	if batchSize <= 0 {
		batchSize = len(gold)
	}

	preds := make([]Prediction, 0, len(gold))
	for start := 0; start < len(gold); start += batchSize {
		end := start + batchSize
		if end > len(gold) {
			end = len(gold)
		}

		reviews := make([]string, 0, end-start)
		for _, g := range gold[start:end] {
			reviews = append(reviews, g.Review)
		}
		payload, err := json.Marshal(reviews)
		if err != nil {
			return Metrics{}, fmt.Errorf("marshal batch: %w", err)
		}

		r.logger.Info("[eval] Labeling batch %d-%d of %d", start, end, len(gold))
		text, err := r.gen.Generate(ctx, string(payload))
		if err != nil {
			r.logger.Warn("[eval] Batch %d failed, scoring as misses: %v", start, err)
			preds = append(preds, make([]Prediction, end-start)...)
			continue
		}

		batch, err := UnwrapPredictions(text)
		if err != nil {
			r.logger.Warn("[eval] Batch %d unparseable, scoring as misses: %v", start, err)
			preds = append(preds, make([]Prediction, end-start)...)
			continue
		}
		// Pad or truncate to the batch size so indexes stay aligned.
		for len(batch) < end-start {
			batch = append(batch, Prediction{})
		}
		preds = append(preds, batch[:end-start]...)
	}

	return Score(gold, preds), nil
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
