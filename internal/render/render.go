// Package render draws reduced series as PNG line charts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/RMahshie/sensorscope/pkg/models"
)

// ErrNothingToPlot is returned when no point of a series can be drawn on its axes
var ErrNothingToPlot = errors.New("no plottable points")

// maxTicks bounds fixed-spacing tick generation; denser axes fall back to default ticks
const maxTicks = 200

// Style holds the cosmetics shared by every chart of one rendering batch
type Style struct {
	FontSize  float64 // points
	Width     float64 // inches
	Height    float64 // inches
	LineWidth float64 // points
	LineColor color.Color
	Grid      bool
}

// DefaultStyle matches the diagnostic plots the instrumentation team reads
func DefaultStyle() Style {
	return Style{
		FontSize:  16,
		Width:     14,
		Height:    7,
		LineWidth: 2,
		LineColor: colornames.Steelblue,
		Grid:      true,
	}
}

// Renderer draws series with a fixed style
type Renderer struct {
	style Style
}

// New creates a renderer. Zero fields of style take their default values.
func New(style Style) *Renderer {
	def := DefaultStyle()
	if style.FontSize <= 0 {
		style.FontSize = def.FontSize
	}
	if style.Width <= 0 {
		style.Width = def.Width
	}
	if style.Height <= 0 {
		style.Height = def.Height
	}
	if style.LineWidth <= 0 {
		style.LineWidth = def.LineWidth
	}
	if style.LineColor == nil {
		style.LineColor = def.LineColor
	}
	return &Renderer{style: style}
}

// Render draws s and writes it to outputPath. It returns the written path, or
// "" when outputPath is empty (the chart is still built and validated).
func (r *Renderer) Render(s models.ReducedSeries, outputPath string) (string, error) {
	p, err := r.build(s)
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		return "", nil
	}
	if err := p.Save(r.width(), r.height(), outputPath); err != nil {
		return "", fmt.Errorf("failed to save plot: %w", err)
	}
	return outputPath, nil
}

// Encode draws s as PNG into w
func (r *Renderer) Encode(s models.ReducedSeries, w io.Writer) error {
	p, err := r.build(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(r.width(), r.height(), "png")
	if err != nil {
		return fmt.Errorf("failed to create png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func (r *Renderer) width() vg.Length  { return vg.Length(r.style.Width) * vg.Inch }
func (r *Renderer) height() vg.Length { return vg.Length(r.style.Height) * vg.Inch }

func (r *Renderer) build(s models.ReducedSeries) (*plot.Plot, error) {
	if len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("series %s: x/y length mismatch: %d != %d", s.Channel, len(s.X), len(s.Y))
	}

	pts := points(s)
	if len(pts) == 0 {
		return nil, fmt.Errorf("series %s (%s): %w", s.Channel, s.Kind, ErrNothingToPlot)
	}

	p := plot.New()
	size := vg.Points(r.style.FontSize)

	p.Title.Text = s.Title
	p.Title.TextStyle.Font.Size = size
	p.X.Label.Text = s.XLabel
	p.X.Label.TextStyle.Font.Size = size
	p.X.Tick.Label.Font.Size = size
	p.Y.Label.Text = s.YLabel
	p.Y.Label.TextStyle.Font.Size = size
	p.Y.Tick.Label.Font.Size = size

	if s.TickSpacing > 0 {
		p.X.Tick.Marker = spacedTicks{origin: pts[0].X, step: s.TickSpacing}
	}
	if s.LogScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	if r.style.Grid {
		p.Add(plotter.NewGrid())
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %w", err)
	}
	line.LineStyle.Width = vg.Points(r.style.LineWidth)
	line.LineStyle.Color = r.style.LineColor
	p.Add(line)
	widenFlatRanges(p, s.LogScale)

	return p, nil
}

// widenFlatRanges gives single-valued axes a visible span. The plot's own
// fallback widens by ±1, which goes non-positive on a log axis.
func widenFlatRanges(p *plot.Plot, logY bool) {
	if p.X.Min == p.X.Max {
		p.X.Min--
		p.X.Max++
	}
	if p.Y.Min == p.Y.Max {
		if logY {
			p.Y.Min /= 2
			p.Y.Max *= 2
		} else {
			p.Y.Min--
			p.Y.Max++
		}
	}
}

// points drops values that cannot be drawn: non-finite values, and
// non-positive values on a log axis.
func points(s models.ReducedSeries) plotter.XYs {
	pts := make(plotter.XYs, 0, len(s.X))
	for i := range s.X {
		x, y := s.X[i], s.Y[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		if s.LogScale && y <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

// spacedTicks places major ticks every step starting at origin
type spacedTicks struct {
	origin float64
	step   float64
}

func (t spacedTicks) Ticks(min, max float64) []plot.Tick {
	if t.step <= 0 || (max-min)/t.step > maxTicks {
		return plot.DefaultTicks{}.Ticks(min, max)
	}

	first := math.Ceil((min - t.origin) / t.step)
	var ticks []plot.Tick
	for i := first; ; i++ {
		v := t.origin + i*t.step
		if v > max+t.step*1e-9 {
			break
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'g', 6, 64)})
	}
	return ticks
}

// FileName returns the artifact file name of a series
func FileName(s models.ReducedSeries) string {
	name := strings.NewReplacer("/", "-", "\\", "-", " ", "_").Replace(s.Channel)
	if name == "" {
		name = "channel"
	}
	return fmt.Sprintf("%s-%s.png", name, s.Kind)
}
