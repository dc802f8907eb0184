package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversCoreTopics(t *testing.T) {
	tax := Default()

	pros, cons := tax.Keys()
	assert.Contains(t, pros, "scenery")
	assert.Contains(t, pros, "value")
	assert.Contains(t, cons, "noise")
	assert.Contains(t, cons, "broken_facilities")
}

func TestLoad_ReplacesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	content := `{
		"pros": [{"topic": "surf", "description": "close to surf spots"}],
		"cons": [{"topic": "wind", "description": "exposed to strong wind"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	tax, err := Load(path)
	require.NoError(t, err)

	pros, cons := tax.Keys()
	assert.Equal(t, []string{"surf"}, pros)
	assert.Equal(t, []string{"wind"}, cons)
}

func TestLoad_RejectsEmptyTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pros": [], "cons": []}`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestPromptLines_RendersBullets(t *testing.T) {
	tax := Taxonomy{
		Pros: []Topic{{Topic: "scenery", Description: "views, nature, surroundings"}},
		Cons: []Topic{{Topic: "noise", Description: "road noise"}},
	}

	pros, cons := tax.PromptLines()
	assert.Equal(t, "- scenery: views, nature, surroundings", pros)
	assert.Equal(t, "- noise: road noise", cons)
}

func TestParseSuggestions(t *testing.T) {
	response := `{
		"new_suggestions": [
			{"suggested_key": "ferry_access", "reasoning": "several reviews mention the ferry", "example_quote": "right next to the ferry terminal"}
		]
	}`

	suggestions, err := ParseSuggestions(response)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "ferry_access", suggestions[0].SuggestedKey)
}

func TestParseSuggestions_EmptyList(t *testing.T) {
	suggestions, err := ParseSuggestions(`{"new_suggestions": []}`)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestDiscoveryReport_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := NewDiscoveryReport([]Suggestion{{SuggestedKey: "ferry_access"}})

	require.NoError(t, report.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ferry_access")
	assert.Contains(t, string(data), "discovery_timestamp")
}
