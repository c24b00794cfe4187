// Package chart renders spending series as QuickChart image URLs.
package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	quickchartgo "github.com/henomis/quickchart-go"

	"receipts/internal/core"
)

const (
	defaultWidth   = 1200
	defaultHeight  = 600
	chartJSVersion = "2.9.4"
)

var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

type dataset struct {
	Label           string    `json:"label,omitempty"`
	Data            []float64 `json:"data"`
	Fill            *bool     `json:"fill,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
}

type config struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string  `json:"labels"`
		Datasets []dataset `json:"datasets"`
	} `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// labelLayout is how a bucket start is labelled for each period.
func labelLayout(p core.Period) string {
	switch p {
	case core.Year:
		return "2006"
	case core.Month:
		return "Jan 2006"
	default:
		return "2006-01-02"
	}
}

// SeriesConfig is a line chart of bucket totals in chronological order.
func SeriesConfig(title string, buckets []core.Bucket, p core.Period, loc *time.Location) (string, error) {
	if len(buckets) == 0 {
		return "", ErrNoData
	}
	if loc == nil {
		loc = time.UTC
	}

	var cfg config
	cfg.Type = "line"
	fill := false
	ds := dataset{Label: title, Fill: &fill, BorderColor: palette[0]}
	layout := labelLayout(p)
	for _, b := range buckets {
		cfg.Data.Labels = append(cfg.Data.Labels, b.Start.In(loc).Format(layout))
		ds.Data = append(ds.Data, b.Total.Float())
	}
	cfg.Data.Datasets = []dataset{ds}
	cfg.Options = titled(title)
	return encode(cfg)
}

// TotalsConfig is a doughnut chart of per-entity totals. Entities beyond
// the palette size are folded into "Other".
func TotalsConfig(title string, totals []core.EntityTotal) (string, error) {
	if len(totals) == 0 {
		return "", ErrNoData
	}

	var cfg config
	cfg.Type = "doughnut"
	var ds dataset
	var colors []string
	var other core.Money
	for i, t := range totals {
		if i >= len(palette)-1 && len(totals) > len(palette) {
			other = other.Add(t.Total)
			continue
		}
		cfg.Data.Labels = append(cfg.Data.Labels, t.Name)
		ds.Data = append(ds.Data, t.Total.Float())
		colors = append(colors, palette[i%len(palette)])
	}
	if len(totals) > len(palette) {
		cfg.Data.Labels = append(cfg.Data.Labels, "Other")
		ds.Data = append(ds.Data, other.Float())
		colors = append(colors, palette[len(palette)-1])
	}
	ds.BackgroundColor = colors
	cfg.Data.Datasets = []dataset{ds}
	cfg.Options = titled(title)
	return encode(cfg)
}

func titled(title string) map[string]any {
	if title == "" {
		return nil
	}
	return map[string]any{"title": map[string]any{"display": true, "text": title}}
}

func encode(cfg config) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode chart config: %w", err)
	}
	return string(b), nil
}

func newChart(cfg string) *quickchartgo.Chart {
	qc := quickchartgo.New()
	qc.Config = cfg
	qc.Width = defaultWidth
	qc.Height = defaultHeight
	qc.Version = chartJSVersion
	return qc
}

// URL builds the chart URL locally. The configuration travels in the query.
func URL(cfg string) (string, error) {
	u, err := newChart(cfg).GetUrl()
	if err != nil {
		return "", fmt.Errorf("chart url: %w", err)
	}
	return u, nil
}

// ShortURL asks QuickChart to store the chart and returns a short link.
func ShortURL(cfg string) (string, error) {
	u, err := newChart(cfg).GetShortUrl()
	if err != nil {
		return "", fmt.Errorf("chart short url: %w", err)
	}
	return u, nil
}
