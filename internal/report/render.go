package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/scoring"
	"github.com/verte-zerg/nutriplan/internal/store"
	"github.com/verte-zerg/nutriplan/internal/window"
)

const (
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
	minBarWidth         = 10
	clockLayout         = "15:04"
)

var stateColors = map[window.State]string{
	window.Upcoming:      "\x1b[34m",
	window.Active:        "\x1b[36m",
	window.LateButDoable: "\x1b[33m",
	window.Completed:     "\x1b[32m",
	window.Missed:        "\x1b[31m",
}

// RenderWindows prints the window table of a report.
func RenderWindows(w io.Writer, rows []WindowRow, useColor bool) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No plan for this day.")
		return err
	}
	headers := []string{"#", "Time", "Purpose", "Flex", "State", "Target", "Eaten", "P/C/F", "Score", "Adjusted"}
	var body [][]string
	for i, r := range rows {
		eff := r.Window.Effective()
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%d", r.Score.Score)
		}
		adjusted := ""
		if r.Window.Adjusted != nil {
			adjusted = fmt.Sprintf("%+d kcal", eff.Calories-r.Window.Target.Calories)
			if reason := model.DescribeReason(r.Window.Reason); reason != "" {
				adjusted += " " + reason
			}
		}
		state := string(r.State)
		if useColor {
			state = stateColors[r.State] + state + colorReset
		}
		body = append(body, []string{
			fmt.Sprintf("%d", i+1),
			r.Window.Start.Format(clockLayout) + "-" + r.Window.End.Format(clockLayout),
			string(r.Window.Purpose),
			string(r.Window.Flexibility),
			state,
			fmt.Sprintf("%d kcal", eff.Calories),
			fmt.Sprintf("%.0f kcal", r.Window.Consumed.Calories),
			fmt.Sprintf("%d/%d/%d g", eff.Protein, eff.Carbs, eff.Fat),
			score,
			adjusted,
		})
	}
	for _, line := range formatTable(headers, body) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDaily prints a daily score with its breakdown.
func RenderDaily(w io.Writer, ds model.DailyScore) error {
	if _, err := fmt.Fprintf(w, "Day %s: %d/100  %s\n", ds.Day, ds.Score, ds.Insight); err != nil {
		return err
	}
	headers := []string{"Component", "Weight", "Value"}
	var body [][]string
	for _, c := range ds.Breakdown.Components() {
		body = append(body, []string{c.Name, fmt.Sprintf("%d%%", c.Weight), fmt.Sprintf("%.1f", c.Value)})
	}
	for _, line := range formatTable(headers, body) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderWindowScores prints per-window scores with their field breakdown.
func RenderWindowScores(w io.Writer, rows []WindowRow) error {
	headers := []string{"#", "Purpose", "Score", "Cal", "Protein", "Carbs", "Fat", "Insight"}
	var body [][]string
	for i, r := range rows {
		if r.Score == nil {
			continue
		}
		b := r.Score.Breakdown
		body = append(body, []string{
			fmt.Sprintf("%d", i+1), string(r.Window.Purpose), fmt.Sprintf("%d", r.Score.Score),
			fmt.Sprintf("%d", b.Calories), fmt.Sprintf("%d", b.Protein), fmt.Sprintf("%d", b.Carbs), fmt.Sprintf("%d", b.Fat),
			r.Score.Insight,
		})
	}
	if len(body) == 0 {
		_, err := fmt.Fprintln(w, "No windows to score yet.")
		return err
	}
	for _, line := range formatTable(headers, body) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderImpact prints category scores as bars sized to totalWidth.
func RenderImpact(w io.Writer, im nutrient.Impact, totalWidth int) error {
	labelWidth := 0
	for _, cs := range im.Categories {
		if n := displayWidth(string(cs.Category)); n > labelWidth {
			labelWidth = n
		}
	}
	barWidth := totalWidth - labelWidth - 16
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	for _, cs := range im.Categories {
		line := fmt.Sprintf("%s  %s  %5.2f", padCell(string(cs.Category), labelWidth, false), bar(cs.Score, barWidth), cs.Score)
		if cs.Penalty > 0 {
			line += fmt.Sprintf("  -%.1f", cs.Penalty)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Overall: %.2f\n", im.Overall); err != nil {
		return err
	}
	for _, p := range im.Penalties {
		if p.Adjusted == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "Penalty %s: %.1f (base %.1f)\n", p.Nutrient, p.Adjusted, p.Base); err != nil {
			return err
		}
	}
	if len(im.Unmatched) > 0 {
		if _, err := fmt.Fprintf(w, "Unknown nutrients: %s\n", strings.Join(im.Unmatched, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// bar renders v in [0,1] as a filled bar; values above 1 fill it.
func bar(v float64, width int) string {
	filled := int(math.Round(math.Max(0, math.Min(1, v)) * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// RenderWeights prints the active weight table for every purpose.
func RenderWeights(w io.Writer, table scoring.WeightTable) error {
	headers := []string{"Purpose", "Calories", "Protein", "Carbs", "Fat"}
	var body [][]string
	for _, p := range model.Purposes {
		wt := table.For(p)
		body = append(body, []string{
			string(p),
			fmt.Sprintf("%d%%", wt.Calories), fmt.Sprintf("%d%%", wt.Protein),
			fmt.Sprintf("%d%%", wt.Carbs), fmt.Sprintf("%d%%", wt.Fat),
		})
	}
	for _, line := range formatTable(headers, body) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderNutrient prints a catalog entry.
func RenderNutrient(w io.Writer, info nutrient.Info) error {
	lines := []string{
		fmt.Sprintf("%s (%s)", info.Name, info.Unit),
	}
	if len(info.Aliases) > 0 {
		lines = append(lines, "Aliases: "+strings.Join(info.Aliases, ", "))
	}
	if info.Anti {
		lines = append(lines, fmt.Sprintf("Daily limit: %g %s, severity %s", info.Limit, info.Unit, info.Severity))
	} else {
		lines = append(lines, fmt.Sprintf("RDA: male %g, female %g", info.RDA.Male, info.RDA.Female))
	}
	cats := make([]string, len(info.Categories))
	for i, c := range info.Categories {
		cats[i] = string(c)
	}
	lines = append(lines, "Categories: "+strings.Join(cats, ", "))
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDays prints stored day summaries.
func RenderDays(w io.Writer, days []store.DaySummary) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(w, "No days found.")
		return err
	}
	headers := []string{"Day", "Generation", "Windows", "Meals", "Planned"}
	var body [][]string
	for _, d := range days {
		body = append(body, []string{
			d.Day, fmt.Sprintf("%d", d.Generation), fmt.Sprintf("%d", d.Windows), fmt.Sprintf("%d", d.Meals),
			d.PlannedAt.Format("2006-01-02 15:04"),
		})
	}
	for _, line := range formatTable(headers, body) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// TerminalWidth returns the stdout width, or a fallback when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// ShouldUseColor reports whether ANSI colors should be written to w.
func ShouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
