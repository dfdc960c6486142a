package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nutriplan.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return st
}

func sampleRecord() model.DayRecord {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	adj := model.Targets{Calories: 150, Protein: 20, Carbs: 15, Fat: 5}
	return model.DayRecord{
		Day:        "2026-03-10",
		Generation: 3,
		PlannedAt:  base.Add(7 * time.Hour),
		Windows: []model.MealWindow{
			{
				ID: "w2", Day: "2026-03-10",
				Start: base.Add(12 * time.Hour), End: base.Add(13 * time.Hour),
				Purpose: model.PurposeRecovery, Flexibility: model.FlexStrict,
				Target:   model.Targets{Calories: 300, Protein: 26, Carbs: 30, Fat: 8},
				Adjusted: &adj,
				Reason:   model.Overconsumption{Percent: 150},
			},
			{
				ID: "w1", Day: "2026-03-10",
				Start: base.Add(8 * time.Hour), End: base.Add(9 * time.Hour),
				Purpose: model.PurposeMetabolicBoost, Flexibility: model.FlexModerate,
				Target:   model.Targets{Calories: 400, Protein: 30, Carbs: 40, Fat: 13},
				Consumed: model.Intake{Calories: 600, Protein: 31.5, Carbs: 40, Fat: 13},
				Fasted:   false,
			},
		},
		Meals: []model.LoggedMeal{
			{
				ID: "m1", WindowID: "w1", Timestamp: base.Add(8*time.Hour + 30*time.Minute),
				Calories: 600, Protein: 31.5, Carbs: 40, Fat: 13,
				Micronutrients: map[string]float64{"vitamin c": 45, "sodium": 900},
				Health:         &model.HealthScore{Score: 72, Factors: []model.HealthFactor{{Name: "fiber", Impact: model.ImpactPositive, Weight: 0.4}}},
			},
		},
	}
}

func TestSaveAndLoadDayRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	if err := st.SaveDay(ctx, rec); err != nil {
		t.Fatalf("save day: %v", err)
	}
	res, err := st.LoadDay(ctx, rec.Day)
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if !res.Found || res.Rejected != 0 {
		t.Fatalf("unexpected load result: found=%v rejected=%d", res.Found, res.Rejected)
	}
	got := res.Record
	if got.Generation != 3 || !got.PlannedAt.Equal(rec.PlannedAt) {
		t.Fatalf("unexpected day header: %+v", got)
	}
	if len(got.Windows) != 2 || got.Windows[0].ID != "w1" || got.Windows[1].ID != "w2" {
		t.Fatalf("expected windows ordered by start, got %+v", got.Windows)
	}
	w2 := got.Windows[1]
	if w2.Adjusted == nil || *w2.Adjusted != *rec.Windows[0].Adjusted {
		t.Fatalf("adjusted targets not restored: %+v", w2.Adjusted)
	}
	over, ok := w2.Reason.(model.Overconsumption)
	if !ok || over.Percent != 150 {
		t.Fatalf("reason not restored: %#v", w2.Reason)
	}
	w1 := got.Windows[0]
	if w1.Adjusted != nil || w1.Reason != nil {
		t.Fatalf("expected unadjusted window, got %+v", w1)
	}
	if w1.Consumed.Protein != 31.5 || !w1.Start.Equal(rec.Windows[1].Start) {
		t.Fatalf("window fields not restored: %+v", w1)
	}
	if len(got.Meals) != 1 {
		t.Fatalf("expected one meal, got %d", len(got.Meals))
	}
	m := got.Meals[0]
	if m.Micronutrients["sodium"] != 900 || m.Health == nil || m.Health.Score != 72 || len(m.Health.Factors) != 1 {
		t.Fatalf("meal payload not restored: %+v", m)
	}
}

func TestSaveDayReplacesRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	if err := st.SaveDay(ctx, rec); err != nil {
		t.Fatalf("save day: %v", err)
	}
	rec.Generation = 4
	rec.Windows = rec.Windows[:1]
	rec.Meals = nil
	if err := st.SaveDay(ctx, rec); err != nil {
		t.Fatalf("resave day: %v", err)
	}
	res, err := st.LoadDay(ctx, rec.Day)
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if res.Record.Generation != 4 || len(res.Record.Windows) != 1 || len(res.Record.Meals) != 0 {
		t.Fatalf("expected replaced aggregate, got %+v", res.Record)
	}
}

func TestLoadDayMissing(t *testing.T) {
	st := openTestStore(t)
	res, err := st.LoadDay(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if res.Found || res.Record.Planned() {
		t.Fatalf("expected missing day, got %+v", res)
	}
}

func TestLoadDaySkipsMalformedRows(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SaveDay(ctx, sampleRecord()); err != nil {
		t.Fatalf("save day: %v", err)
	}
	stmts := []string{
		`INSERT INTO windows (id, day, start_at, end_at, purpose, flexibility, target_calories, target_protein, target_carbs, target_fat)
		 VALUES ('', '2026-03-10', '2026-03-10T15:00:00Z', '2026-03-10T16:00:00Z', 'recovery', 'moderate', 100, 10, 10, 3)`,
		`INSERT INTO windows (id, day, start_at, end_at, purpose, flexibility, target_calories, target_protein, target_carbs, target_fat, reason_kind)
		 VALUES ('w9', '2026-03-10', '2026-03-10T17:00:00Z', '2026-03-10T18:00:00Z', 'recovery', 'moderate', 100, 10, 10, 3, 'vibes')`,
		`INSERT INTO meals (id, day, eaten_at, calories, protein, carbs, fat)
		 VALUES ('', '2026-03-10', '2026-03-10T15:10:00Z', 100, 1, 1, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := st.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("insert malformed row: %v", err)
		}
	}
	res, err := st.LoadDay(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if res.Rejected != 3 {
		t.Fatalf("expected 3 rejected rows, got %d", res.Rejected)
	}
	if len(res.Record.Windows) != 2 || len(res.Record.Meals) != 1 {
		t.Fatalf("valid rows should survive, got %d windows %d meals", len(res.Record.Windows), len(res.Record.Meals))
	}
}

func TestSaveDayRejectsMissingIdentity(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SaveDay(ctx, model.DayRecord{}); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity for empty day, got %v", err)
	}
	rec := sampleRecord()
	rec.Meals[0].ID = ""
	if err := st.SaveDay(ctx, rec); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity for meal, got %v", err)
	}
	res, err := st.LoadDay(ctx, rec.Day)
	if err != nil {
		t.Fatalf("load day: %v", err)
	}
	if res.Found {
		t.Fatalf("failed save must roll back")
	}
}

func TestListDays(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := sampleRecord()
	if err := st.SaveDay(ctx, rec); err != nil {
		t.Fatalf("save day: %v", err)
	}
	other := model.DayRecord{Day: "2026-03-09", Generation: 1, PlannedAt: rec.PlannedAt.Add(-24 * time.Hour)}
	if err := st.SaveDay(ctx, other); err != nil {
		t.Fatalf("save day: %v", err)
	}
	days, err := st.ListDays(ctx, "")
	if err != nil {
		t.Fatalf("list days: %v", err)
	}
	if len(days) != 2 || days[0].Day != "2026-03-09" || days[1].Windows != 2 || days[1].Meals != 1 {
		t.Fatalf("unexpected days: %+v", days)
	}
	recent, err := st.ListDays(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("list days since: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected one day since 2026-03-10, got %d", len(recent))
	}
}
