// Package charts turns chat answers into bar chart images.
//
// render.go draws a chart payload as a PNG bar chart. The functions are
// pure: payload in, image bytes out. It composes:
//   - types.go: ChartData validation before drawing
package charts

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Chart rendering errors
var (
	// ErrNotChartable is returned when the payload is marked not chartable.
	ErrNotChartable = errors.New("payload is not chartable")
	// ErrTooManyPoints is returned when the payload exceeds the bar limit.
	ErrTooManyPoints = errors.New("too many data points to render")
)

// Chart palette. The bar color matches the dashboard accent the profile
// bar charts use.
var (
	chartBackground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	chartBarColor   = color.RGBA{R: 0xff, G: 0xaa, B: 0x00, A: 0xff}
	chartAxisColor  = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
	chartTextColor  = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// RenderConfig holds the chart canvas parameters.
type RenderConfig struct {
	// Width and Height of the PNG canvas in pixels.
	Width  int
	Height int

	// MaxBars caps how many data points are rendered before the bars get
	// too thin to read.
	MaxBars int
}

// DefaultRenderConfig returns the canvas the chat UI embeds: 640x400 with
// at most 24 bars.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:   640,
		Height:  400,
		MaxBars: 24,
	}
}

// RenderBarChart draws a chartable payload as a PNG bar chart: title on
// top, one labeled bar per data point, values printed above the bars.
// Negative values draw as zero-height bars.
//
// This is a pure function (atom) with no external dependencies.
func RenderBarChart(chart *ChartData, config RenderConfig) ([]byte, error) {
	if chart == nil || !chart.Chartable {
		return nil, ErrNotChartable
	}
	if err := chart.Validate(); err != nil {
		return nil, err
	}

	if config.Width <= 0 {
		config.Width = DefaultRenderConfig().Width
	}
	if config.Height <= 0 {
		config.Height = DefaultRenderConfig().Height
	}
	if config.MaxBars <= 0 {
		config.MaxBars = DefaultRenderConfig().MaxBars
	}
	if len(chart.Data) > config.MaxBars {
		return nil, fmt.Errorf("%w: %d points, limit %d", ErrTooManyPoints, len(chart.Data), config.MaxBars)
	}

	const (
		marginTop    = 48 // title zone
		marginBottom = 28 // label zone
		marginSide   = 16
	)
	plotLeft := marginSide
	plotRight := config.Width - marginSide
	plotTop := marginTop + 16 // headroom for the value text above the tallest bar
	plotBottom := config.Height - marginBottom

	img := image.NewRGBA(image.Rect(0, 0, config.Width, config.Height))
	fillRect(img, img.Bounds(), chartBackground)

	title := fitLabel(chart.Title, config.Width-2*marginSide)
	drawText(img, title, (config.Width-textWidth(title))/2, 28, chartTextColor)

	fillRect(img, image.Rect(plotLeft, plotBottom, plotRight, plotBottom+1), chartAxisColor)

	maxValue := 0.0
	for _, point := range chart.Data {
		if point.Value > maxValue {
			maxValue = point.Value
		}
	}
	if maxValue <= 0 {
		// All values zero or negative: draw flat bars instead of dividing
		// by zero.
		maxValue = 1
	}

	slot := (plotRight - plotLeft) / len(chart.Data)
	barWidth := slot * 3 / 4
	if barWidth < 1 {
		barWidth = 1
	}

	for i, point := range chart.Data {
		value := point.Value
		if value < 0 {
			value = 0
		}
		barHeight := int(float64(plotBottom-plotTop) * value / maxValue)

		x0 := plotLeft + i*slot + (slot-barWidth)/2
		fillRect(img, image.Rect(x0, plotBottom-barHeight, x0+barWidth, plotBottom), chartBarColor)

		valueText := formatChartValue(point.Value)
		drawText(img, valueText, x0+(barWidth-textWidth(valueText))/2, plotBottom-barHeight-4, chartTextColor)

		label := fitLabel(point.Label, slot-2)
		drawText(img, label, plotLeft+i*slot+(slot-textWidth(label))/2, plotBottom+18, chartTextColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding chart PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderBarChartBase64 renders the chart and encodes the PNG as standard
// base64 for embedding in a JSON response.
func RenderBarChartBase64(chart *ChartData, config RenderConfig) (string, error) {
	data, err := RenderBarChart(chart, config)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// formatChartValue renders a value with at most one decimal: whole numbers
// without a fraction, everything else rounded to a tenth.
func formatChartValue(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// fillRect fills a rectangle with a solid color.
func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawText draws s with its baseline at (x, y).
func drawText(img *image.RGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// textWidth measures s in the chart face.
func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// fitLabel truncates s to fit maxWidth pixels, marking the cut with "..".
func fitLabel(s string, maxWidth int) string {
	if textWidth(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && textWidth(string(runes)+"..") > maxWidth {
		runes = runes[:len(runes)-1]
	}
	if len(runes) == 0 {
		return ""
	}
	return string(runes) + ".."
}
