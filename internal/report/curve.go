package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/nutriplan/internal/day"
)

// Series is a named line in an intake plot.
type Series struct {
	Name   string
	Values []float64
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight = 10
	minPlotWidth      = 10
	axisSeparator     = " │ "
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dotted", period: 4, on: 1},
}

var curveColors = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m"}

// IntakeSeries samples cumulative planned and eaten calories across the
// planned span of snap. Planned calories accrue evenly over each window; the
// eaten series stops at snap.Now.
func IntakeSeries(snap day.Snapshot, points int) (planned, eaten Series, start, end time.Time) {
	planned = Series{Name: "planned"}
	eaten = Series{Name: "eaten"}
	if len(snap.Windows) == 0 || points < 2 {
		return planned, eaten, start, end
	}
	start, end = snap.Windows[0].Start, snap.Windows[0].End
	for _, w := range snap.Windows[1:] {
		if w.Start.Before(start) {
			start = w.Start
		}
		if w.End.After(end) {
			end = w.End
		}
	}
	span := end.Sub(start)
	for i := 0; i < points; i++ {
		t := start.Add(time.Duration(float64(span) * float64(i) / float64(points-1)))
		var p float64
		for _, w := range snap.Windows {
			cal := float64(w.Effective().Calories)
			switch {
			case !t.After(w.Start):
			case !t.Before(w.End):
				p += cal
			default:
				p += cal * float64(t.Sub(w.Start)) / float64(w.Duration())
			}
		}
		planned.Values = append(planned.Values, p)
		if t.After(snap.Now) {
			continue
		}
		var e float64
		for _, m := range snap.Meals {
			if !m.Timestamp.After(t) {
				e += m.Calories
			}
		}
		eaten.Values = append(eaten.Values, e)
	}
	return planned, eaten, start, end
}

// RenderIntakeCurve plots cumulative planned against eaten calories on a
// shared kcal axis.
func RenderIntakeCurve(w io.Writer, snap day.Snapshot, width, height int, useColor bool) error {
	if len(snap.Windows) == 0 {
		_, err := fmt.Fprintln(w, "No plan for this day.")
		return err
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	top := 0.0
	for _, win := range snap.Windows {
		top += float64(win.Effective().Calories)
	}
	var eatenTotal float64
	for _, m := range snap.Meals {
		eatenTotal += m.Calories
	}
	top = math.Max(top, eatenTotal)
	if top <= 0 {
		top = 1
	}
	labels := makeAxisLabels(height, top)
	axisWidth := 0
	for _, l := range labels {
		axisWidth = maxInt(axisWidth, len(l))
	}
	plotWidth := width - axisWidth - displayWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	planned, eaten, start, end := IntakeSeries(snap, plotWidth)

	series := []Series{planned, eaten}
	cells := make([][][]uint8, len(series))
	for si, s := range series {
		cells[si] = makeCells(height, plotWidth)
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range s.Values {
			px, py := x*2, valueToRow(v, 0, top, height*4)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					if style.shouldPlot(dx) {
						setBrailleDot(cells[si], dx, dy)
					}
				})
			} else if style.shouldPlot(px) {
				setBrailleDot(cells[si], px, py)
			}
			prevX, prevY = px, py
		}
	}

	if _, err := fmt.Fprintf(w, "Calories %s-%s\n", start.Format(clockLayout), end.Format(clockLayout)); err != nil {
		return err
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", axisWidth, labels[y], axisSeparator))
		for x := 0; x < plotWidth; x++ {
			mask, idx := composeCell(cells, x, y)
			ch := brailleFromMask(mask)
			if useColor && idx >= 0 {
				row.WriteString(curveColors[idx%len(curveColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, renderLegend(series, useColor))
	return err
}

func makeAxisLabels(height int, top float64) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = fmt.Sprintf("%.0f", top)
	if height > 2 {
		labels[height/2] = fmt.Sprintf("%.0f", top/2)
	}
	if height > 1 {
		labels[height-1] = "0"
	}
	return labels
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := brailleFromMask(0x01)
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", marker, s.Name, lineStyles[i%len(lineStyles)].name)
		if useColor {
			label = curveColors[i%len(curveColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	colorIdx := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
			continue
		}
		if cells[y][x] == 0 {
			continue
		}
		if colorIdx == -1 {
			colorIdx = i
		}
		mask |= cells[y][x]
	}
	return mask, colorIdx
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func valueToRow(v, minVal, maxVal float64, height int) int {
	if height <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := int(math.Abs(float64(x1 - x0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -int(math.Abs(float64(y1 - y0)))
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			if x0 == x1 {
				break
			}
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				break
			}
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY, cellX := y/4, x/2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	return masks[x][y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
