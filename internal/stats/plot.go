package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisTop           = "max"
	axisBottom        = "min"
	axisSeparator     = " │ "
	colorReset        = "\x1b[0m"
)

// dash patterns keep overlapping series apart without color.
var dashes = []struct {
	name   string
	period int
	on     int
}{
	{"solid", 1, 1},
	{"dashed", 6, 3},
	{"dotted", 4, 1},
}

var palette = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m", "\x1b[32m"}

// canvas is a grid of braille cells, two dots wide and four tall each.
type canvas struct {
	width, height int
	layers        [][]uint8
}

func newCanvas(width, height, layers int) *canvas {
	c := &canvas{width: width, height: height, layers: make([][]uint8, layers)}
	for i := range c.layers {
		c.layers[i] = make([]uint8, width*height)
	}
	return c
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func (c *canvas) set(layer, x, y int) {
	cx, cy := x/2, y/4
	if x < 0 || y < 0 || cx >= c.width || cy >= c.height {
		return
	}
	c.layers[layer][cy*c.width+cx] |= dotBits[x%2][y%4]
}

// line draws with Bresenham's algorithm in dot coordinates.
func (c *canvas) line(layer, x0, y0, x1, y1 int, keep func(x int) bool) {
	dx, sx := abs(x1-x0), sign(x1-x0)
	dy, sy := -abs(y1-y0), sign(y1-y0)
	e := dx + dy
	for {
		if keep(x0) {
			c.set(layer, x0, y0)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			e += dx
			y0 += sy
		}
	}
}

// cell merges all layers; the first layer with a dot picks the color.
func (c *canvas) cell(x, y int) (rune, int) {
	var mask uint8
	owner := -1
	for i, layer := range c.layers {
		if m := layer[y*c.width+x]; m != 0 {
			mask |= m
			if owner < 0 {
				owner = i
			}
		}
	}
	return rune(0x2800 + int(mask)), owner
}

// PlotSeries renders series as a braille line chart, each scaled to its own
// range.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return PlotSeriesWithColor(w, title, series, width, height, false)
}

// PlotSeriesWithColor is PlotSeries with color forced on (NO_COLOR still wins).
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	kept := series[:0:0]
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	c := newCanvas(width, height, len(kept))
	var ranges strings.Builder
	for i, s := range kept {
		values := resample(s.Values, width)
		lo, hi := minMax(values)
		fmt.Fprintf(&ranges, "%s: min=%.2f max=%.2f\n", s.Name, lo, hi)
		if hi-lo < 1e-9 {
			lo, hi = lo-1, hi+1
		}
		d := dashes[i%len(dashes)]
		keep := func(x int) bool { return d.period <= 1 || x%d.period < d.on }
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := 2*x, toDotRow(v, lo, hi, height*4)
			if prevX < 0 {
				prevX, prevY = px, py
			}
			c.line(i, prevX, prevY, px, py, keep)
			prevX, prevY = px, py
		}
	}

	color := shouldUseColor(w, forceColor)
	var out strings.Builder
	if title != "" {
		out.WriteString(title + "\n")
	}
	out.WriteString("Scaled per series; see min/max below.\n")
	out.WriteString(ranges.String())
	labelWidth := runewidth.StringWidth(axisTop)
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = axisTop
		case height - 1:
			label = axisBottom
		}
		out.WriteString(runewidth.FillLeft(label, labelWidth) + axisSeparator)
		for x := 0; x < width; x++ {
			ch, owner := c.cell(x, y)
			if color && owner >= 0 {
				out.WriteString(palette[owner%len(palette)] + string(ch) + colorReset)
				continue
			}
			out.WriteRune(ch)
		}
		out.WriteByte('\n')
	}
	out.WriteString(legend(kept, color) + "\n\n")
	_, err := io.WriteString(w, out.String())
	return err
}

// PlotWidthFor returns the plot width that fits totalWidth with the axis.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	width := totalWidth - runewidth.StringWidth(axisTop) - runewidth.StringWidth(axisSeparator)
	if width < minPlotWidth {
		return minPlotWidth
	}
	return width
}

func legend(series []Series, color bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", rune(0x2801), s.Name, dashes[i%len(dashes)].name)
		if color {
			label = palette[i%len(palette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// resample stretches or averages values down to exactly width points.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}

func toDotRow(v, lo, hi float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	row := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(rows-1)))
	return max(0, min(rows-1, row))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
