// Package render draws a histogram's structural view as a PNG bar chart.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Options controls the canvas and decorations.
type Options struct {
	Width     int
	Height    int
	Grid      bool
	ErrorBars bool
	// Title overrides the histogram name; XLabel and YLabel are optional.
	Title  string
	XLabel string
	YLabel string
}

// DefaultOptions returns a 1200x600 canvas with a grid and no error bars.
func DefaultOptions() Options {
	return Options{Width: 1200, Height: 600, Grid: true}
}

// ErrMissingKey is wrapped by errors reporting a view without a required key.
var ErrMissingKey = errors.New("missing key")

const (
	minWidth  = 160
	minHeight = 120
	// dpi maps one vg point to one pixel, so Width and Height are pixels.
	dpi = 72
)

var (
	barFill   = color.RGBA{0x46, 0x82, 0xb4, 0xff}
	barEdge   = color.RGBA{0x1f, 0x3f, 0x5f, 0xff}
	gridColor = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	errColor  = color.RGBA{0xb2, 0x22, 0x22, 0xff}
)

// chart is the part of a view the renderer needs.
type chart struct {
	name   string
	nbins  int
	xmin   float64
	xmax   float64
	bins   []float64
	errors []float64
}

func fromView(view map[string]any, wantErrors bool) (chart, error) {
	var (
		c   chart
		err error
	)
	if c.name, err = stringKey(view, "name"); err != nil {
		return c, err
	}
	n, err := numberKey(view, "nbins")
	if err != nil {
		return c, err
	}
	c.nbins = int(n)
	if c.nbins < 1 || float64(c.nbins) != n {
		return c, fmt.Errorf("nbins must be a positive integer, got %v", n)
	}
	if c.xmin, err = numberKey(view, "xmin"); err != nil {
		return c, err
	}
	if c.xmax, err = numberKey(view, "xmax"); err != nil {
		return c, err
	}
	if !(c.xmax > c.xmin) || !finite(c.xmin) || !finite(c.xmax) {
		return c, fmt.Errorf("x range [%v, %v] cannot be drawn", c.xmin, c.xmax)
	}
	values, err := floatsKey(view, "values")
	if err != nil {
		return c, err
	}
	if len(values) != c.nbins+2 {
		return c, fmt.Errorf("values has %d entries, expected %d", len(values), c.nbins+2)
	}
	c.bins = values[1 : c.nbins+1]
	if wantErrors {
		errs, err := floatsKey(view, "errors")
		if err != nil {
			return c, err
		}
		if len(errs) != len(values) {
			return c, fmt.Errorf("errors has %d entries, expected %d", len(errs), len(values))
		}
		c.errors = errs[1 : c.nbins+1]
	}
	return c, nil
}

func lookup(view map[string]any, key string) (any, error) {
	v, ok := view[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	return v, nil
}

func stringKey(view map[string]any, key string) (string, error) {
	v, err := lookup(view, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", key, v)
	}
	return s, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		// non-finite numbers spelled out by JSON exports
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil && (math.IsNaN(f) || math.IsInf(f, 0))
	}
	return 0, false
}

func numberKey(view map[string]any, key string) (float64, error) {
	v, err := lookup(view, key)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: want number, got %T", key, v)
	}
	return f, nil
}

func floatsKey(view map[string]any, key string) ([]float64, error) {
	v, err := lookup(view, key)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: want number, got %T", key, i, e)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: want array of numbers, got %T", key, v)
}

// Plot draws view onto a new image. The view must carry name, nbins, xmin,
// xmax and values, plus errors when opt.ErrorBars is set.
func Plot(view map[string]any, opt Options) (image.Image, error) {
	c, err := fromView(view, opt.ErrorBars)
	if err != nil {
		return nil, err
	}
	if opt.Width < minWidth || opt.Height < minHeight {
		return nil, fmt.Errorf("canvas %dx%d is too small", opt.Width, opt.Height)
	}

	p := plot.New()
	p.Title.Text = opt.Title
	if p.Title.Text == "" {
		p.Title.Text = c.name
	}
	p.X.Label.Text = opt.XLabel
	p.Y.Label.Text = opt.YLabel
	if opt.Grid {
		g := plotter.NewGrid()
		g.Vertical.Color = gridColor
		g.Horizontal.Color = gridColor
		p.Add(g)
	}
	p.Add(&bars{chart: c, LineStyle: draw.LineStyle{Color: barEdge, Width: vg.Points(1)}})
	if c.errors != nil {
		eb, err := errorBars(c)
		if err != nil {
			return nil, err
		}
		if eb != nil {
			p.Add(eb)
		}
	}
	lo, hi := yRange(c)
	p.X.Min, p.X.Max = c.xmin, c.xmax
	p.Y.Min, p.Y.Max = lo, hi

	canvas := vgimg.NewWith(vgimg.UseWH(vg.Length(opt.Width), vg.Length(opt.Height)), vgimg.UseDPI(dpi))
	p.Draw(draw.New(canvas))
	return canvas.Image(), nil
}

// bars fills one rectangle per regular bin, from zero to the bin content.
// Non-finite contents are left blank.
type bars struct {
	chart
	draw.LineStyle
}

func (b *bars) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	width := (b.xmax - b.xmin) / float64(b.nbins)
	for i, v := range b.bins {
		if !finite(v) {
			continue
		}
		lo := b.xmin + float64(i)*width
		x0, x1 := trX(lo), trX(lo+width)
		y0, y1 := trY(0), trY(v)
		pts := []vg.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
		c.FillPolygon(barFill, c.ClipPolygonXY(pts))
		c.StrokeLines(b.LineStyle, c.ClipLinesXY(append(pts, pts[0]))...)
	}
}

// DataRange implements plot.DataRanger.
func (b *bars) DataRange() (xmin, xmax, ymin, ymax float64) {
	lo, hi := yRange(b.chart)
	return b.xmin, b.xmax, lo, hi
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// errorBars places a symmetric bar at the centre of every bin whose content
// and error are finite. It returns nil when there is none.
func errorBars(c chart) (*plotter.YErrorBars, error) {
	width := (c.xmax - c.xmin) / float64(c.nbins)
	var pts errorPoints
	for i, v := range c.bins {
		e := math.Abs(c.errors[i])
		if !finite(v) || !finite(e) {
			continue
		}
		pts.XYs = append(pts.XYs, plotter.XY{X: c.xmin + (float64(i)+0.5)*width, Y: v})
		pts.YErrors = append(pts.YErrors, struct{ Low, High float64 }{e, e})
	}
	if len(pts.XYs) == 0 {
		return nil, nil
	}
	eb, err := plotter.NewYErrorBars(pts)
	if err != nil {
		return nil, fmt.Errorf("error bars: %w", err)
	}
	eb.Color = errColor
	eb.Width = vg.Points(1.5)
	eb.CapWidth = vg.Points(8)
	return eb, nil
}

// yRange spans zero, every finite bin and every error bar, with headroom.
func yRange(c chart) (float64, float64) {
	lo, hi := 0.0, 0.0
	for i, v := range c.bins {
		if !finite(v) {
			continue
		}
		e := 0.0
		if c.errors != nil && finite(c.errors[i]) {
			e = math.Abs(c.errors[i])
		}
		lo = min(lo, v-e)
		hi = max(hi, v+e)
	}
	if hi == lo {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.05
	if lo < 0 {
		lo -= pad
	}
	return lo, hi + pad
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Render encodes the chart of view as PNG to w.
func Render(w io.Writer, view map[string]any, opt Options) error {
	img, err := Plot(view, opt)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// RenderFile writes the chart of view to path, replacing any existing file.
func RenderFile(path string, view map[string]any, opt Options) error {
	img, err := Plot(view, opt)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
