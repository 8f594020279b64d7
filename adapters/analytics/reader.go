// Package analytics parses raw analytics API payloads into metric rows.
// Fetching stays with the caller; this package only decodes response bodies,
// so any transport (HTTP client, recorded fixtures) can sit in front of it.
package analytics

import (
	"fmt"

	"github.com/tidwall/gjson"

	"expstat/ports"
)

// ParserConfig controls where rows and video IDs live in a payload.
type ParserConfig struct {
	// DataPath is the JSONPath to the row array. Defaults to "data".
	DataPath string
	// VideoField is the per-row key holding the video ID. Defaults to "video".
	VideoField string
}

// ResponseParser extracts metric rows from analytics JSON responses.
type ResponseParser struct {
	config ParserConfig
}

// NewResponseParser creates a parser. Zero-value config fields get defaults.
func NewResponseParser(config ParserConfig) *ResponseParser {
	if config.DataPath == "" {
		config.DataPath = "data"
	}
	if config.VideoField == "" {
		config.VideoField = "video"
	}
	return &ResponseParser{config: config}
}

// ParseRows extracts the requested metrics from a response body. Rows missing
// a metric simply omit it; non-numeric values are skipped rather than failing
// the whole payload, since analytics APIs mix dimensions and measures in the
// same objects.
func (p *ResponseParser) ParseRows(body []byte, metrics []string) ([]ports.MetricRow, error) {
	dataResult := gjson.GetBytes(body, p.config.DataPath)
	if !dataResult.Exists() {
		return nil, fmt.Errorf("data path %q not found in response", p.config.DataPath)
	}

	var elements []gjson.Result
	switch {
	case dataResult.IsArray():
		elements = dataResult.Array()
	case dataResult.IsObject():
		// Single-object responses wrap into one row.
		elements = []gjson.Result{dataResult}
	default:
		return nil, fmt.Errorf("data path %q is not an array or object", p.config.DataPath)
	}

	rows := make([]ports.MetricRow, 0, len(elements))
	for _, el := range elements {
		row := ports.MetricRow{Values: make(map[string]float64, len(metrics))}

		if video := el.Get(p.config.VideoField); video.Exists() {
			row.VideoID = video.String()
		}

		for _, metric := range metrics {
			value := el.Get(metric)
			if !value.Exists() {
				continue
			}
			switch value.Type {
			case gjson.Number:
				row.Values[metric] = value.Float()
			case gjson.String:
				// Some APIs serialize measures as strings.
				if f := value.Float(); f != 0 || value.String() == "0" {
					row.Values[metric] = f
				}
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}
