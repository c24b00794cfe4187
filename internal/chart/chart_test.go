package chart

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/core"
)

func decode(t *testing.T, cfg string) config {
	t.Helper()
	var c config
	require.NoError(t, json.Unmarshal([]byte(cfg), &c))
	return c
}

func TestSeriesConfig(t *testing.T) {
	buckets := []core.Bucket{
		{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Total: core.Money{Cents: 1250}},
		{Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Total: core.Money{Cents: 300}},
	}

	cfg, err := SeriesConfig("Spending by month", buckets, core.Month, time.UTC)
	require.NoError(t, err)

	c := decode(t, cfg)
	assert.Equal(t, "line", c.Type)
	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, c.Data.Labels)
	require.Len(t, c.Data.Datasets, 1)
	assert.Equal(t, []float64{12.5, 3}, c.Data.Datasets[0].Data)
}

func TestSeriesLabels(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		period core.Period
		want   string
	}{
		{core.Day, "2024-03-04"},
		{core.Week, "2024-03-04"},
		{core.Month, "Mar 2024"},
		{core.Year, "2024"},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			cfg, err := SeriesConfig("", []core.Bucket{{Start: start}}, tt.period, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, decode(t, cfg).Data.Labels)
		})
	}
}

func TestTotalsConfigFoldsOther(t *testing.T) {
	var totals []core.EntityTotal
	for i := 0; i < 12; i++ {
		totals = append(totals, core.EntityTotal{ID: int64(i + 1), Name: string(rune('A' + i)), Total: core.Money{Cents: 100}})
	}

	cfg, err := TotalsConfig("By shop", totals)
	require.NoError(t, err)

	c := decode(t, cfg)
	assert.Equal(t, "doughnut", c.Type)
	require.Len(t, c.Data.Labels, len(palette))
	assert.Equal(t, "Other", c.Data.Labels[len(palette)-1])
	assert.Equal(t, float64(3), c.Data.Datasets[0].Data[len(palette)-1])

	small, err := TotalsConfig("", totals[:2])
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, decode(t, small).Data.Labels)
}

func TestEmptyInput(t *testing.T) {
	_, err := SeriesConfig("x", nil, core.Month, time.UTC)
	assert.ErrorIs(t, err, ErrNoData)
	_, err = TotalsConfig("x", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestURL(t *testing.T) {
	cfg, err := TotalsConfig("By shop", []core.EntityTotal{{ID: 1, Name: "Corner", Total: core.Money{Cents: 100}}})
	require.NoError(t, err)

	u, err := URL(cfg)
	require.NoError(t, err)
	assert.True(t, strings.Contains(u, "quickchart.io"), u)
}
