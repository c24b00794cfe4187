package core

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, p := range Periods() {
		got, err := ParsePeriod(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	got, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, Week, got)

	_, err = ParsePeriod("fortnight")
	assert.Error(t, err)
	assert.Equal(t, Month, DefaultPeriod)
}

func TestPeriodBucket(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	// Wednesday 2024-03-13 01:30 in Rome is still 2024-03-13 00:30 UTC.
	ts := time.Date(2024, 3, 13, 1, 30, 0, 0, rome)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{Day, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
		{Week, time.Date(2024, 3, 11, 0, 0, 0, 0, rome)},
		{Month, time.Date(2024, 3, 1, 0, 0, 0, 0, rome)},
		{Year, time.Date(2024, 1, 1, 0, 0, 0, 0, rome)},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			got := tt.period.Bucket(ts, rome)
			assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
		})
	}
}

func TestDayBucketFloorsEpochMillis(t *testing.T) {
	ts := time.UnixMilli(3*86_400_000 + 12345)
	assert.Equal(t, int64(3*86_400_000), Day.Bucket(ts, time.Local).UnixMilli())

	before := time.UnixMilli(-1)
	assert.Equal(t, int64(-86_400_000), Day.Bucket(before, time.Local).UnixMilli())
}

func TestWeekBucketSunday(t *testing.T) {
	sunday := time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC)
	got := Week.Bucket(sunday, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), got)
}

func TestBucketRows(t *testing.T) {
	rows := []SpendingRow{
		{Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Amount: Money{Cents: 300}},
		{Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Amount: Money{Cents: 100}},
		{Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), Amount: Money{Cents: 250}},
	}

	buckets := BucketRows(rows, Month, time.UTC)
	require.Len(t, buckets, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), buckets[0].Start)
	assert.Equal(t, Money{Cents: 350}, buckets[0].Total)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), buckets[1].Start)
	assert.Equal(t, Money{Cents: 300}, buckets[1].Total)

	assert.Empty(t, BucketRows(nil, Year, time.UTC))
}

func TestAverageAndMedian(t *testing.T) {
	mk := func(cents ...int64) []Bucket {
		out := make([]Bucket, len(cents))
		for i, c := range cents {
			out[i] = Bucket{Total: Money{Cents: c}}
		}
		return out
	}

	_, ok := Average(nil)
	assert.False(t, ok)
	_, ok = Median(mk())
	assert.False(t, ok)

	avg, ok := Average(mk(100, 200, 400))
	require.True(t, ok)
	assert.Equal(t, Money{Cents: 233}, avg)

	med, ok := Median(mk(400, 100, 200))
	require.True(t, ok)
	assert.Equal(t, Money{Cents: 200}, med)

	med, ok = Median(mk(400, 100, 200, 101))
	require.True(t, ok)
	assert.Equal(t, Money{Cents: 151}, med)
}
