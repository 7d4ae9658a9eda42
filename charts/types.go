// Package charts turns chat answers into bar chart images.
//
// types.go defines the chart payload the LLM fills in: a chartable flag, a
// title and a list of label/value points. The JSON field names are the wire
// contract shared by the extraction prompt and the web API.
package charts

import (
	"errors"
	"fmt"
	"strings"
)

// Chart validation errors
var (
	// ErrMissingTitle is returned when a chartable payload has no title.
	ErrMissingTitle = errors.New("chartable payload has no title")
	// ErrNoDataPoints is returned when a chartable payload has no points.
	ErrNoDataPoints = errors.New("chartable payload has no data points")
	// ErrMissingLabel is returned when a data point has an empty label.
	ErrMissingLabel = errors.New("data point has no label")
)

// ChartDataPoint is a single bar: a label (usually a country name) and its
// numerical value (usually a score).
type ChartDataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartData holds data extracted from an answer that is suitable for
// plotting. When the answer carries nothing chartable, Chartable is false
// and the rest of the payload is ignored.
type ChartData struct {
	Chartable bool             `json:"chartable"`
	Title     string           `json:"title"`
	Data      []ChartDataPoint `json:"data"`
}

// Validate checks that a chartable payload is complete enough to render.
// A non-chartable payload is always valid.
func (c *ChartData) Validate() error {
	if !c.Chartable {
		return nil
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrMissingTitle
	}
	if len(c.Data) == 0 {
		return ErrNoDataPoints
	}
	for i, point := range c.Data {
		if strings.TrimSpace(point.Label) == "" {
			return fmt.Errorf("%w: point %d", ErrMissingLabel, i)
		}
	}
	return nil
}
