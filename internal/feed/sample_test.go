package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSample_Shape(t *testing.T) {
	opts := DefaultSampleOptions()
	rows := GenerateSample(opts)
	require.Len(t, rows, opts.NumAssets*opts.Days)

	dates := make(map[time.Time]int)
	for _, r := range rows {
		assert.True(t, r.Complete())
		wd := r.Date.Weekday()
		assert.NotEqual(t, time.Saturday, wd)
		assert.NotEqual(t, time.Sunday, wd)
		dates[r.Date]++
	}
	assert.Len(t, dates, opts.Days)
	for _, n := range dates {
		assert.Equal(t, opts.NumAssets, n)
	}
}

func TestGenerateSample_Deterministic(t *testing.T) {
	opts := DefaultSampleOptions()
	a := GenerateSample(opts)
	b := GenerateSample(opts)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, *a[i], *b[i])
	}

	opts.Seed = 43
	c := GenerateSample(opts)
	assert.NotEqual(t, a[0].YTrue, c[0].YTrue)
}

func TestGenerateSample_CanonicalOrder(t *testing.T) {
	rows := GenerateSample(SampleOptions{Assets: []string{"MSFT", "AAPL"}, Days: 4, Start: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Seed: 1, Vol: 0.01})
	require.Len(t, rows, 8)

	assert.Equal(t, "AAPL", rows[0].AssetID)
	assert.Equal(t, "MSFT", rows[1].AssetID)
	// 2024-01-05 is a Friday; the next business day is Monday.
	assert.Equal(t, time.Friday, rows[0].Date.Weekday())
	assert.Equal(t, time.Monday, rows[2].Date.Weekday())
}

func TestGenerateSample_Empty(t *testing.T) {
	assert.Nil(t, GenerateSample(SampleOptions{NumAssets: 3}))
	assert.Nil(t, GenerateSample(SampleOptions{Days: 3}))
}
