package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_PerfectPredictions(t *testing.T) {
	m := Metrics{Samples: 2, TP: 4, FP: 0, FN: 0}
	assert.Equal(t, 1.0, m.Precision())
	assert.Equal(t, 1.0, m.Recall())
	assert.Equal(t, 1.0, m.F1())
}

func TestMetrics_NoPredictions(t *testing.T) {
	m := Metrics{Samples: 2, TP: 0, FP: 0, FN: 4}
	assert.Equal(t, 0.0, m.Precision())
	assert.Equal(t, 0.0, m.Recall())
	assert.Equal(t, 0.0, m.F1())
}

func TestMetrics_Mixed(t *testing.T) {
	m := Metrics{Samples: 3, TP: 6, FP: 2, FN: 2}
	assert.InDelta(t, 0.75, m.Precision(), 1e-9)
	assert.InDelta(t, 0.75, m.Recall(), 1e-9)
	assert.InDelta(t, 0.75, m.F1(), 1e-9)
}

func TestLoadGoldenSet_AppliesLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden.json")
	content := `[
		{"review": "Great views", "pros": ["scenery"], "cons": []},
		{"review": "Noisy road", "pros": [], "cons": ["noise"]},
		{"review": "Nice staff", "pros": ["staff"], "cons": []}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	items, err := LoadGoldenSet(path, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"scenery"}, items[0].Pros)
}

func TestLoadGoldenSet_MissingFile(t *testing.T) {
	_, err := LoadGoldenSet(filepath.Join(t.TempDir(), "nope.json"), 0)
	assert.Error(t, err)
}

func TestUnwrapPredictions_BareList(t *testing.T) {
	preds, err := UnwrapPredictions(`[{"pros": ["scenery"], "cons": []}]`)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, []string{"scenery"}, preds[0].Pros)
}

func TestUnwrapPredictions_WrappedUnderConventionalKey(t *testing.T) {
	preds, err := UnwrapPredictions(`{"reviews": [{"pros": [], "cons": ["noise"]}]}`)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, []string{"noise"}, preds[0].Cons)
}

func TestUnwrapPredictions_SingleUnknownKey(t *testing.T) {
	preds, err := UnwrapPredictions(`{"labelled": [{"pros": ["value"], "cons": []}]}`)
	require.NoError(t, err)
	require.Len(t, preds, 1)
}

func TestUnwrapPredictions_MarkdownFence(t *testing.T) {
	preds, err := UnwrapPredictions("```json\n[{\"pros\": [], \"cons\": []}]\n```")
	require.NoError(t, err)
	assert.Len(t, preds, 1)
}

func TestUnwrapPredictions_RejectsGarbage(t *testing.T) {
	_, err := UnwrapPredictions("not json at all")
	assert.Error(t, err)
}

func TestScore_MissingPredictionsAreAllFalseNegatives(t *testing.T) {
	gold := []GoldenItem{
		{Review: "r1", Pros: []string{"scenery"}, Cons: []string{"noise"}},
		{Review: "r2", Pros: []string{"staff"}},
	}
	preds := []Prediction{{Pros: []string{"scenery"}, Cons: []string{"noise"}}}

	m := Score(gold, preds)

	assert.Equal(t, 2, m.Samples)
	assert.Equal(t, 2, m.TP)
	assert.Equal(t, 0, m.FP)
	assert.Equal(t, 1, m.FN)
}

func TestScore_CountsFalsePositives(t *testing.T) {
	gold := []GoldenItem{{Review: "r1", Pros: []string{"scenery"}}}
	preds := []Prediction{{Pros: []string{"scenery", "value"}}}

	m := Score(gold, preds)

	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.FP)
	assert.Equal(t, 0, m.FN)
}

// scriptedGenerator returns canned batch responses in order.
type scriptedGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string) (string, error) {
	i := g.calls
	g.calls++
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

func (g *scriptedGenerator) Close() error { return nil }

func TestEvaluate_BatchesAndScores(t *testing.T) {
	gold := []GoldenItem{
		{Review: "r1", Pros: []string{"scenery"}},
		{Review: "r2", Cons: []string{"noise"}},
		{Review: "r3", Pros: []string{"staff"}},
	}
	gen := &scriptedGenerator{responses: []string{
		`[{"pros": ["scenery"], "cons": []}, {"pros": [], "cons": ["noise"]}]`,
		`[{"pros": ["staff"], "cons": []}]`,
	}}

	m, err := NewRunner(gen, 2, nil).Evaluate(context.Background(), gold)
	require.NoError(t, err)

	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 3, m.TP)
	assert.Equal(t, 0, m.FP)
	assert.Equal(t, 0, m.FN)
}

func TestEvaluate_FailedBatchScoresAsMisses(t *testing.T) {
	gold := []GoldenItem{
		{Review: "r1", Pros: []string{"scenery"}},
		{Review: "r2", Cons: []string{"noise"}},
	}
	gen := &scriptedGenerator{
		errs:      []error{fmt.Errorf("503 unavailable"), nil},
		responses: []string{"", `[{"pros": [], "cons": ["noise"]}]`},
	}

	m, err := NewRunner(gen, 1, nil).Evaluate(context.Background(), gold)
	require.NoError(t, err)

	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.FN)
}

func TestEvaluate_ShortBatchPaddedWithEmptyPredictions(t *testing.T) {
	gold := []GoldenItem{
		{Review: "r1", Pros: []string{"scenery"}},
		{Review: "r2", Pros: []string{"staff"}},
	}
	gen := &scriptedGenerator{responses: []string{`[{"pros": ["scenery"], "cons": []}]`}}

	m, err := NewRunner(gen, 0, nil).Evaluate(context.Background(), gold)
	require.NoError(t, err)

	assert.Equal(t, 1, m.TP)
	assert.Equal(t, 1, m.FN)
}
