package dayui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/report"
	"github.com/verte-zerg/nutriplan/internal/window"
)

func fixtureReport() report.Report {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	done := model.MealWindow{
		ID: "a", Start: base.Add(8 * time.Hour), End: base.Add(9 * time.Hour),
		Purpose: model.PurposeMetabolicBoost, Flexibility: model.FlexModerate,
		Target:   model.Targets{Calories: 500, Protein: 38, Carbs: 50, Fat: 17},
		Consumed: model.Intake{Calories: 480},
	}
	next := model.MealWindow{
		ID: "b", Start: base.Add(13 * time.Hour), End: base.Add(14 * time.Hour),
		Purpose: model.PurposeSustainedEnergy, Flexibility: model.FlexModerate,
		Target: model.Targets{Calories: 600, Protein: 38, Carbs: 68, Fat: 20},
	}
	return report.Report{
		Snapshot: day.Snapshot{
			Day: "2026-03-10", Generation: 3, Now: base.Add(10 * time.Hour),
			Windows: []model.MealWindow{done, next},
		},
		Daily: model.DailyScore{Day: "2026-03-10", Score: 82, Insight: "Close to target", Breakdown: model.DailyBreakdown{
			Adherence:   model.DailyComponent{Name: "adherence", Weight: 40, Value: 91},
			FoodQuality: model.DailyComponent{Name: "food-quality", Weight: 25, Value: 70},
		}},
		Windows: []report.WindowRow{
			{Window: done, State: window.Completed, Score: &model.WindowScore{WindowID: "a", Score: 96}},
			{Window: next, State: window.Upcoming},
		},
		Impact: nutrient.Impact{
			Categories: []nutrient.CategoryScore{{Category: nutrient.Categories[0], Score: 0.5}},
			Overall:    0.5,
		},
	}
}

func loadedModel(t *testing.T, rep report.Report) *Model {
	t.Helper()
	m := NewModel(func(context.Context) (report.Report, error) { return rep, nil })
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(loadedMsg{report: rep})
	return m
}

func TestViewShowsWindowsAndSummary(t *testing.T) {
	m := loadedModel(t, fixtureReport())
	out := m.View()
	if !containsAll(out, []string{"Windows", "Day 2026-03-10", "plan #3", "next 13:00 sustained-energy", "08:00-09:00", "completed", "96"}) {
		t.Fatalf("view missing expected segments:\n%s", out)
	}
	if lines := strings.Split(out, "\n"); len(lines) != 30 {
		t.Fatalf("expected view to fill 30 lines, got %d", len(lines))
	}
}

func TestTabsCycleThroughAllTabs(t *testing.T) {
	m := loadedModel(t, fixtureReport())
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabScores {
		t.Fatalf("expected scores tab, got %d", m.activeTab)
	}
	if out := m.View(); !containsAll(out, []string{"Day score", "82", "Food quality", "Close to target"}) {
		t.Fatalf("scores tab missing content:\n%s", out)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if out := m.View(); !strings.Contains(out, "Overall: 0.50") {
		t.Fatalf("impact tab missing overall:\n%s", out)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if out := m.View(); !containsAll(out, []string{"Calories 08:00-14:00", "Legend:", "planned", "eaten"}) {
		t.Fatalf("timeline tab missing curve:\n%s", out)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabWindows {
		t.Fatalf("expected wrap to windows tab, got %d", m.activeTab)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabTimeline {
		t.Fatalf("expected wrap back to timeline tab, got %d", m.activeTab)
	}
}

func TestEmptyPlanMessage(t *testing.T) {
	rep := fixtureReport()
	rep.Windows = nil
	m := loadedModel(t, rep)
	if out := m.View(); !strings.Contains(out, "No plan for this day") {
		t.Fatalf("expected empty plan message:\n%s", out)
	}
}

func TestLoadErrorKeepsPreviousReport(t *testing.T) {
	m := loadedModel(t, fixtureReport())
	m.Update(loadedMsg{err: errors.New("database is locked")})
	out := m.View()
	if !containsAll(out, []string{"database is locked", "08:00-09:00"}) {
		t.Fatalf("expected error footer over previous data:\n%s", out)
	}
}

func TestReloadCommandUsesLoader(t *testing.T) {
	calls := 0
	m := NewModel(func(context.Context) (report.Report, error) {
		calls++
		return fixtureReport(), nil
	})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatalf("expected reload command")
	}
	msg, ok := cmd().(loadedMsg)
	if !ok || calls != 1 || msg.err != nil {
		t.Fatalf("expected one successful load, got calls=%d msg=%+v", calls, msg)
	}
}

func TestQuitKey(t *testing.T) {
	m := loadedModel(t, fixtureReport())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
