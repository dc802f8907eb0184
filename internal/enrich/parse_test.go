package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnrichment_PlainJSON(t *testing.T) {
	enrichment, err := ParseEnrichment(validResponse)
	require.NoError(t, err)

	require.NotNil(t, enrichment.WaterEUR)
	assert.Equal(t, 2.0, *enrichment.WaterEUR)
	assert.Nil(t, enrichment.ElectricityEUR)
	assert.Equal(t, "Some mention road noise at night.", enrichment.ConsSummary)
}

func TestParseEnrichment_MarkdownFencedJSON(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"

	enrichment, err := ParseEnrichment(fenced)
	require.NoError(t, err)
	assert.False(t, enrichment.IsEmpty())
}

func TestParseEnrichment_NullPricesStayNil(t *testing.T) {
	response := `{
		"parking_min_eur": null,
		"parking_max_eur": null,
		"electricity_eur": null,
		"water_eur": null,
		"pros_summary": "Quiet spot.",
		"cons_summary": ""
	}`

	enrichment, err := ParseEnrichment(response)
	require.NoError(t, err)

	assert.Nil(t, enrichment.ParkingMinEUR)
	assert.Nil(t, enrichment.ParkingMaxEUR)
	assert.Nil(t, enrichment.ElectricityEUR)
	assert.Nil(t, enrichment.WaterEUR)
	assert.Equal(t, "Quiet spot.", enrichment.ProsSummary)
}

func TestParseEnrichment_RejectsMissingFields(t *testing.T) {
	_, err := ParseEnrichment(`{"pros_summary": "ok", "cons_summary": ""}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestParseEnrichment_RejectsStringPrices(t *testing.T) {
	response := `{
		"parking_min_eur": "free",
		"parking_max_eur": null,
		"electricity_eur": null,
		"water_eur": null,
		"pros_summary": "",
		"cons_summary": ""
	}`

	_, err := ParseEnrichment(response)
	assert.Error(t, err)
}

func TestParseEnrichment_RejectsEmptyResponse(t *testing.T) {
	_, err := ParseEnrichment("   ")
	assert.Error(t, err)
}

func TestCleanJSONBlock_StripsJSONFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock("```json\n{\"a\": 1}\n```"))
}

func TestCleanJSONBlock_StripsBareFence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock("```\n{\"a\": 1}\n```"))
}

func TestCleanJSONBlock_LeavesPlainTextAlone(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, CleanJSONBlock(`{"a": 1}`))
}
