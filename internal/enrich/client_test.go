package enrich

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiago/land-scout/internal/taxonomy"
	"github.com/tiago/land-scout/internal/types"
)

const validResponse = `{
	"parking_min_eur": 0,
	"parking_max_eur": 12.5,
	"electricity_eur": null,
	"water_eur": 2,
	"pros_summary": "Guests praise the scenery and value.",
	"cons_summary": "Some mention road noise at night."
}`

// fakeGenerator returns scripted responses in order.
type fakeGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

func (f *fakeGenerator) Close() error { return nil }

func newTestClient(gen Generator) (*Client, *[]time.Duration) {
	client := NewClient(gen, Options{
		MinInterval: 0,
		MaxRetries:  3,
		BackoffUnit: time.Second,
	})
	var slept []time.Duration
	client.sleep = func(d time.Duration) {
		slept = append(slept, d)
	}
	return client, &slept
}

func rawPlace() types.RawPlace {
	return types.RawPlace{
		P4NID:     "12345",
		Title:     "Riverside Aire",
		PriceText: "Parking: free to 12.50 EUR, water 2 EUR",
		Reviews:   []string{"Lovely views", "A bit noisy"},
	}
}

func TestAnalyze_ParsesValidResponse(t *testing.T) {
	client, _ := newTestClient(&fakeGenerator{responses: []string{validResponse}})

	enrichment, err := client.Analyze(context.Background(), rawPlace())
	require.NoError(t, err)

	require.NotNil(t, enrichment.ParkingMinEUR)
	assert.Equal(t, 0.0, *enrichment.ParkingMinEUR)
	require.NotNil(t, enrichment.ParkingMaxEUR)
	assert.Equal(t, 12.5, *enrichment.ParkingMaxEUR)
	assert.Nil(t, enrichment.ElectricityEUR)
	assert.Equal(t, "Guests praise the scenery and value.", enrichment.ProsSummary)
}

func TestAnalyze_RetriesRateLimitWithLinearBackoff(t *testing.T) {
	gen := &fakeGenerator{
		errs:      []error{fmt.Errorf("googleapi: Error 429: quota exceeded"), fmt.Errorf("rate limit"), nil},
		responses: []string{"", "", validResponse},
	}
	client, slept := newTestClient(gen)

	enrichment, err := client.Analyze(context.Background(), rawPlace())
	require.NoError(t, err)
	assert.False(t, enrichment.IsEmpty())
	assert.Equal(t, 3, gen.calls)

	// Backoff grows linearly with the attempt number.
	require.Len(t, *slept, 2)
	assert.Equal(t, 1*time.Second, (*slept)[0])
	assert.Equal(t, 2*time.Second, (*slept)[1])
}

func TestAnalyze_ExhaustedRetriesReturnsEmptyEnrichment(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{
			fmt.Errorf("429 too many requests"),
			fmt.Errorf("429 too many requests"),
			fmt.Errorf("429 too many requests"),
		},
	}
	client, _ := newTestClient(gen)

	enrichment, err := client.Analyze(context.Background(), rawPlace())
	require.Error(t, err)
	assert.True(t, enrichment.IsEmpty())
	assert.Equal(t, 3, gen.calls)
}

func TestAnalyze_NonRetryableErrorFailsImmediately(t *testing.T) {
	gen := &fakeGenerator{errs: []error{fmt.Errorf("invalid argument")}}
	client, _ := newTestClient(gen)

	enrichment, err := client.Analyze(context.Background(), rawPlace())
	require.Error(t, err)
	assert.True(t, enrichment.IsEmpty())
	assert.Equal(t, 1, gen.calls)
}

func TestAnalyze_MalformedResponseReturnsEmptyEnrichment(t *testing.T) {
	client, _ := newTestClient(&fakeGenerator{responses: []string{"this is not JSON"}})

	enrichment, err := client.Analyze(context.Background(), rawPlace())
	require.Error(t, err)
	assert.True(t, enrichment.IsEmpty())
}

func TestWaitForSlot_EnforcesMinimumInterval(t *testing.T) {
	client := NewClient(&fakeGenerator{}, Options{MinInterval: 4 * time.Second})
	var slept []time.Duration
	client.sleep = func(d time.Duration) { slept = append(slept, d) }

	client.lastCall = time.Now()
	client.waitForSlot()

	require.Len(t, slept, 1)
	assert.Greater(t, slept[0], 3*time.Second)
}

func TestIsRateLimitError_Classification(t *testing.T) {
	assert.True(t, IsRateLimitError(fmt.Errorf("googleapi: Error 429")))
	assert.True(t, IsRateLimitError(fmt.Errorf("RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(fmt.Errorf("quota exceeded for model")))
	assert.False(t, IsRateLimitError(fmt.Errorf("connection refused")))
	assert.False(t, IsRateLimitError(nil))
}

func TestNewSystemInstruction_MentionsNullRuleAndTaxonomy(t *testing.T) {
	instruction := NewSystemInstruction(taxonomy.Default())

	assert.Contains(t, instruction, "null")
	assert.Contains(t, instruction, "scenery")
	assert.Contains(t, instruction, "noise")
	assert.Contains(t, instruction, "parking_min_eur")
}
