// Package dayui provides the Bubble Tea day dashboard.
package dayui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/report"
	"github.com/verte-zerg/nutriplan/internal/window"
)

const (
	tabWindows = iota
	tabScores
	tabImpact
	tabTimeline
)

const (
	refreshInterval = time.Minute
	timelineHeight  = 10
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))

	stateStyles = map[window.State]lipgloss.Style{
		window.Upcoming:      lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		window.Active:        lipgloss.NewStyle().Foreground(lipgloss.Color("#3FC1C9")).Bold(true),
		window.LateButDoable: lipgloss.NewStyle().Foreground(lipgloss.Color("#E0B040")),
		window.Completed:     lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")),
		window.Missed:        lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
	}
)

// Loader builds a fresh report for the dashboard.
type Loader func(ctx context.Context) (report.Report, error)

type tickMsg time.Time

type loadedMsg struct {
	report report.Report
	err    error
}

// Model implements the Bubble Tea day dashboard.
type Model struct {
	load Loader

	report report.Report
	loaded bool
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	winTable  table.Model

	width  int
	height int
}

// NewModel constructs a dashboard that reads its data through load.
func NewModel(load Loader) *Model {
	m := &Model{
		load: load,
		tabs: []string{"Windows", "Scores", "Impact", "Timeline"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.winTable = table.New(
		table.WithColumns(windowColumns()),
		table.WithHeight(1),
		table.WithFocused(true),
	)
	m.winTable.SetStyles(windowTableStyles())
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.reload(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) reload() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		rep, err := load(context.Background())
		return loadedMsg{report: rep, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.reload(), tick())
	case loadedMsg:
		m.applyReport(msg.report, msg.err)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			return m, m.reload()
		case "g", "home":
			if m.activeTab == tabWindows {
				m.winTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabWindows {
				m.winTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabWindows {
				var cmd tea.Cmd
				m.winTable, cmd = m.winTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) applyReport(rep report.Report, err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.loaded = true
	m.report = rep
	m.winTable.SetRows(windowRows(rep.Windows))
	m.renderTabContents()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.winTable.SetWidth(m.width)
	m.winTable.SetHeight(maxInt(1, bodyHeight-1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabWindows {
		m.winTable.Focus()
	} else {
		m.winTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + padLines(m.renderSummary(), m.width)
}

func (m *Model) renderSummary() string {
	if !m.loaded {
		return headerStyle.Render("Loading...")
	}
	snap := m.report.Snapshot
	line := headerStyle.Render(truncateLine(fmt.Sprintf("Day %s  plan #%d  at %s", snap.Day, snap.Generation, snap.Now.Format("15:04")), m.width))
	if next, ok := nextOpen(m.report.Windows); ok {
		state := stateStyles[next.State].Render(string(next.State))
		line += headerStyle.Render(fmt.Sprintf("  next %s %s ", next.Window.Start.Format("15:04"), next.Window.Purpose)) + state
	}
	return line
}

// nextOpen returns the first window that still accepts meals.
func nextOpen(rows []report.WindowRow) (report.WindowRow, bool) {
	for _, r := range rows {
		if !r.State.Terminal() {
			return r, true
		}
	}
	return report.WindowRow{}, false
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Reload: r  Quit: q")
}

func (m *Model) renderFooter() string {
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderBody(height int) string {
	if !m.loaded {
		return fitLines("", m.width, height)
	}
	if m.activeTab == tabWindows {
		if len(m.report.Windows) == 0 {
			return fitLines("No plan for this day. Run: nutriplan plan", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.winTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderTabContents() {
	if !m.loaded || len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabScores].SetContent(renderScores(m.report, width))
	m.viewports[tabImpact].SetContent(renderImpact(m.report, width))
	m.viewports[tabTimeline].SetContent(renderTimeline(m.report, width))
}

func renderScores(rep report.Report, width int) string {
	if len(rep.Windows) == 0 {
		return "No plan for this day."
	}
	ds := rep.Daily
	cards := []string{metricCard("Day score", fmt.Sprintf("%d", ds.Score))}
	for _, c := range ds.Breakdown.Components() {
		cards = append(cards, metricCard(componentLabel(c.Name), fmt.Sprintf("%.0f", c.Value)))
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	var buf bytes.Buffer
	if err := report.RenderWindowScores(&buf, rep.Windows); err != nil {
		return fmt.Sprintf("Failed to render scores: %v", err)
	}
	parts := []string{summary}
	if ds.Insight != "" {
		parts = append(parts, cardTitleStyle.Render(ds.Insight))
	}
	parts = append(parts, strings.TrimRight(buf.String(), "\n"))
	return strings.Join(parts, "\n\n")
}

func renderImpact(rep report.Report, width int) string {
	var buf bytes.Buffer
	if err := report.RenderImpact(&buf, rep.Impact, width); err != nil {
		return fmt.Sprintf("Failed to render impact: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderTimeline(rep report.Report, width int) string {
	var buf bytes.Buffer
	if err := report.RenderIntakeCurve(&buf, rep.Snapshot, width, timelineHeight, true); err != nil {
		return fmt.Sprintf("Failed to render timeline: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func componentLabel(name string) string {
	label := strings.ReplaceAll(name, "-", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func windowColumns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 11},
		{Title: "Purpose", Width: 16},
		{Title: "State", Width: 15},
		{Title: "Target", Width: 9},
		{Title: "Eaten", Width: 9},
		{Title: "P/C/F (g)", Width: 12},
		{Title: "Score", Width: 5},
	}
}

func windowRows(rows []report.WindowRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		eff := r.Window.Effective()
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%d", r.Score.Score)
		}
		out = append(out, table.Row{
			r.Window.Start.Format("15:04") + "-" + r.Window.End.Format("15:04"),
			purposeLabel(r.Window),
			string(r.State),
			fmt.Sprintf("%d", eff.Calories),
			fmt.Sprintf("%.0f", r.Window.Consumed.Calories),
			fmt.Sprintf("%d/%d/%d", eff.Protein, eff.Carbs, eff.Fat),
			score,
		})
	}
	return out
}

func purposeLabel(w model.MealWindow) string {
	label := string(w.Purpose)
	if w.Adjusted != nil {
		label += "*"
	}
	return label
}

func windowTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
