package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Period is the time granularity spending is bucketed by.
type Period int

const (
	Day Period = iota
	Week
	Month
	Year
)

// DefaultPeriod is the granularity selected before any user choice.
const DefaultPeriod = Month

const dayMillis = 86_400_000

var periodNames = map[Period]string{
	Day:   "day",
	Week:  "week",
	Month: "month",
	Year:  "year",
}

func (p Period) String() string {
	if name, ok := periodNames[p]; ok {
		return name
	}
	return fmt.Sprintf("period(%d)", int(p))
}

func (p Period) IsValid() bool {
	_, ok := periodNames[p]
	return ok
}

// Periods returns every period in ascending granularity.
func Periods() []Period {
	return []Period{Day, Week, Month, Year}
}

// ParsePeriod accepts the lower-case period name.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range periodNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid period %q", s)
}

// Bucket returns the start of the bucket t falls into.
//
// Day buckets are the epoch millis floored to a whole day (UTC midnight).
// Week, month and year buckets are calendar aligned in loc; weeks start on
// Monday.
func (p Period) Bucket(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	switch p {
	case Day:
		ms := t.UnixMilli()
		floored := ms - mod(ms, dayMillis)
		return time.UnixMilli(floored).UTC()
	case Week:
		lt := t.In(loc)
		offset := (int(lt.Weekday()) + 6) % 7 // Monday = 0
		return time.Date(lt.Year(), lt.Month(), lt.Day()-offset, 0, 0, 0, 0, loc)
	case Month:
		lt := t.In(loc)
		return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
	case Year:
		lt := t.In(loc)
		return time.Date(lt.Year(), time.January, 1, 0, 0, 0, 0, loc)
	default:
		return t
	}
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Bucket is the total spent within one time bucket.
type Bucket struct {
	Start time.Time
	Total Money
}

// SpendingRow is a single dated amount before bucketing.
type SpendingRow struct {
	Date   time.Time
	Amount Money
}

// BucketRows groups rows by period and returns the buckets in ascending
// chronological order. Buckets with no rows are not emitted.
func BucketRows(rows []SpendingRow, p Period, loc *time.Location) []Bucket {
	totals := make(map[int64]*Bucket)
	for _, r := range rows {
		start := p.Bucket(r.Date, loc)
		key := start.UnixMilli()
		b, ok := totals[key]
		if !ok {
			b = &Bucket{Start: start}
			totals[key] = b
		}
		b.Total = b.Total.Add(r.Amount)
	}

	out := make([]Bucket, 0, len(totals))
	for _, b := range totals {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Average is the arithmetic mean of the bucket totals, rounded half away
// from zero. ok is false when there are no buckets.
func Average(buckets []Bucket) (Money, bool) {
	if len(buckets) == 0 {
		return Money{}, false
	}
	var sum int64
	for _, b := range buckets {
		sum += b.Total.Cents
	}
	return Money{Cents: divRound(sum, int64(len(buckets)))}, true
}

// Median is the middle bucket total, or the mean of the two middle totals
// for an even count. ok is false when there are no buckets.
func Median(buckets []Bucket) (Money, bool) {
	n := len(buckets)
	if n == 0 {
		return Money{}, false
	}
	values := make([]int64, n)
	for i, b := range buckets {
		values[i] = b.Total.Cents
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	if n%2 == 1 {
		return Money{Cents: values[n/2]}, true
	}
	return Money{Cents: divRound(values[n/2-1]+values[n/2], 2)}, true
}
