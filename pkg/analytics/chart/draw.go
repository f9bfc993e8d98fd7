package chart

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	// HoleRatio is the donut hole radius as a fraction of the outer radius.
	HoleRatio = 0.55

	DefaultSliceColor = "#90a4ae"
	DefaultBarColor   = "#1976d2"
	DefaultLineColor  = "#26a69a"

	margin      = 20
	gutter      = 10
	minBarWidth = 20
	lineWidth   = 2
	donutInset  = 4
)

// Slice is one donut wedge in radians, measured clockwise on screen from
// the positive x axis.
type Slice struct {
	Start float64
	Sweep float64
}

type Point struct {
	X float64
	Y float64
}

// ParseColor reads a #rrggbb (or #rgb) string. Anything else falls back to
// DefaultSliceColor.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 3 && len(hex) != 6 {
		hex = strings.TrimPrefix(DefaultSliceColor, "#")
	}
	return drawing.ColorFromHex(hex)
}

// DonutSlices splits a full turn proportionally, starting at 12 o'clock.
// A zero total is treated as 1, which yields empty wedges.
func DonutSlices(values []float64) []Slice {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total == 0 {
		total = 1
	}

	start := -math.Pi / 2
	out := make([]Slice, len(values))
	for i, v := range values {
		sweep := v / total * 2 * math.Pi
		out[i] = Slice{Start: start, Sweep: sweep}
		start += sweep
	}
	return out
}

// BarLayout returns one rectangle per value, left-aligned from the margin.
// Bars are never narrower than 20px; heights scale to max(values..., 1).
func BarLayout(width, height int, values []float64) []image.Rectangle {
	maxValue := seriesMax(values)
	n := len(values)
	if n == 0 {
		n = 1
	}
	barWidth := (width-2*margin)/n - gutter
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	plotHeight := float64(height - 2*margin)
	baseline := height - margin
	out := make([]image.Rectangle, 0, len(values))
	x := margin
	for _, v := range values {
		h := int(math.Floor(v / maxValue * plotHeight))
		if h < 0 {
			h = 0
		}
		out = append(out, image.Rect(x, baseline-h, x+barWidth, baseline))
		x += barWidth + gutter
	}
	return out
}

// LinePoints spreads values evenly across the plot width. With fewer than
// two values the segment count is floored at one.
func LinePoints(width, height int, values []float64) []Point {
	maxValue := seriesMax(values)
	segments := len(values) - 1
	if segments < 1 {
		segments = 1
	}
	step := float64(width-2*margin) / float64(segments)
	plotHeight := float64(height - 2*margin)

	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{
			X: margin + float64(i)*step,
			Y: float64(height-margin) - math.Floor(v/maxValue*plotHeight),
		}
	}
	return out
}

// Clear makes every pixel transparent.
func Clear(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// DrawDonut redraws img as a ring of proportional wedges. Wedges without a
// matching color use DefaultSliceColor.
func DrawDonut(img *image.RGBA, values []float64, colors []color.Color) error {
	Clear(img)

	w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	r := math.Min(w, h)/2 - donutInset
	if r <= 0 {
		return nil
	}
	cx, cy := float64(img.Bounds().Min.X)+w/2, float64(img.Bounds().Min.Y)+h/2

	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return err
	}
	for i, s := range DonutSlices(values) {
		if s.Sweep <= 0 {
			continue
		}
		gc.BeginPath()
		gc.SetFillColor(colorAt(colors, i))
		gc.MoveTo(cx, cy)
		gc.ArcTo(cx, cy, r, r, s.Start, s.Sweep)
		gc.Close()
		gc.Fill()
	}

	hole := &circleMask{cx: cx, cy: cy, r: r * HoleRatio, bounds: img.Bounds()}
	draw.DrawMask(img, img.Bounds(), image.Transparent, image.Point{}, hole, img.Bounds().Min, draw.Src)
	return nil
}

// DrawBars redraws img as a bar chart of values.
func DrawBars(img *image.RGBA, values []float64, fill color.Color) error {
	Clear(img)
	if fill == nil {
		fill = ParseColor(DefaultBarColor)
	}

	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return err
	}
	origin := img.Bounds().Min
	for _, rect := range BarLayout(img.Bounds().Dx(), img.Bounds().Dy(), values) {
		if rect.Empty() {
			continue
		}
		rect = rect.Add(origin)
		gc.BeginPath()
		gc.SetFillColor(fill)
		gc.MoveTo(float64(rect.Min.X), float64(rect.Min.Y))
		gc.LineTo(float64(rect.Max.X), float64(rect.Min.Y))
		gc.LineTo(float64(rect.Max.X), float64(rect.Max.Y))
		gc.LineTo(float64(rect.Min.X), float64(rect.Max.Y))
		gc.Close()
		gc.Fill()
	}
	return nil
}

// DrawLine redraws img as a polyline through values.
func DrawLine(img *image.RGBA, values []float64, stroke color.Color) error {
	Clear(img)
	if stroke == nil {
		stroke = ParseColor(DefaultLineColor)
	}

	points := LinePoints(img.Bounds().Dx(), img.Bounds().Dy(), values)
	if len(points) < 2 {
		return nil
	}

	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return err
	}
	origin := img.Bounds().Min
	gc.BeginPath()
	gc.SetStrokeColor(stroke)
	gc.SetLineWidth(lineWidth)
	for i, p := range points {
		x, y := p.X+float64(origin.X), p.Y+float64(origin.Y)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	gc.Stroke()
	return nil
}

func seriesMax(values []float64) float64 {
	m := 1.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func colorAt(colors []color.Color, i int) color.Color {
	if i < len(colors) && colors[i] != nil {
		return colors[i]
	}
	return ParseColor(DefaultSliceColor)
}

// circleMask is opaque inside the circle and clear outside.
type circleMask struct {
	cx, cy, r float64
	bounds    image.Rectangle
}

func (c *circleMask) ColorModel() color.Model { return color.AlphaModel }

func (c *circleMask) Bounds() image.Rectangle { return c.bounds }

func (c *circleMask) At(x, y int) color.Color {
	dx, dy := float64(x)+0.5-c.cx, float64(y)+0.5-c.cy
	if dx*dx+dy*dy <= c.r*c.r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
