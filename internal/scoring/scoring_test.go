package scoring

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func dayWindows() []model.MealWindow {
	return []model.MealWindow{
		{ID: "a", Start: at(8, 0), End: at(9, 0), Flexibility: model.FlexModerate, Target: model.Targets{Calories: 400, Protein: 30, Carbs: 40, Fat: 12}},
		{ID: "b", Start: at(12, 0), End: at(13, 0), Flexibility: model.FlexModerate, Target: model.Targets{Calories: 300, Protein: 24, Carbs: 30, Fat: 10}},
		{ID: "c", Start: at(18, 0), End: at(19, 0), Flexibility: model.FlexModerate, Target: model.Targets{Calories: 100, Protein: 8, Carbs: 10, Fat: 4}},
	}
}

func TestBuckets(t *testing.T) {
	cases := map[int]Bucket{100: Excellent, 85: Excellent, 84: Good, 70: Good, 69: Okay, 50: Okay, 30: Poor, 29: Bad, 0: Bad}
	for score, want := range cases {
		if got := BucketFor(DisplayScore(model.HealthScore{Score: score})); got != want {
			t.Fatalf("score %d: expected %s, got %s", score, want, got)
		}
	}
}

func TestBreakdownTotal(t *testing.T) {
	if got := BreakdownTotal(model.HealthBreakdown{}); got != 5 {
		t.Fatalf("expected base 5, got %v", got)
	}
	top := model.HealthBreakdown{MacroBalance: 5, FoodQuality: 5, ProteinEfficiency: 5, Micronutrients: 5, PortionSize: 5}
	if got := BreakdownTotal(top); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	bottom := model.HealthBreakdown{MacroBalance: -5, FoodQuality: -5, ProteinEfficiency: -5, Micronutrients: -5, PortionSize: -5}
	if got := BreakdownTotal(bottom); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	mixed := BreakdownTotal(model.HealthBreakdown{MacroBalance: 2, FoodQuality: -2})
	if math.Abs(mixed-5.1) > 1e-9 {
		t.Fatalf("expected 5.1, got %v", mixed)
	}
}

func TestSubScoreCurve(t *testing.T) {
	cases := []struct {
		actual float64
		target int
		flex   model.Flexibility
		want   int
	}{
		{100, 100, model.FlexModerate, 100},
		{120, 100, model.FlexModerate, 50},
		{80, 100, model.FlexModerate, 50},
		{140, 100, model.FlexModerate, 0},
		{200, 100, model.FlexModerate, 0},
		{105, 100, model.FlexStrict, 75},
		{135, 100, model.FlexFlexible, 50},
		{0, 0, model.FlexModerate, 100},
		{5, 0, model.FlexModerate, 0},
	}
	for _, tc := range cases {
		if got := SubScore(tc.actual, tc.target, tc.flex); got != tc.want {
			t.Fatalf("SubScore(%v, %d, %s): expected %d, got %d", tc.actual, tc.target, tc.flex, tc.want, got)
		}
	}
}

func TestWindowScoreOnTarget(t *testing.T) {
	w := dayWindows()[0]
	w.Consumed = model.Intake{Calories: 400, Protein: 30, Carbs: 40, Fat: 12}
	ws := NewScorer(nil).Window(w)
	if ws.Score != 100 || ws.Insight != "On target" {
		t.Fatalf("expected 100 on target, got %d %q", ws.Score, ws.Insight)
	}
	if d := ws.Details[model.FieldProtein]; d.Target != 30 || d.Actual != 30 || d.Contribution != 25 {
		t.Fatalf("unexpected protein detail: %+v", d)
	}
}

func TestWindowScoreUsesEffectiveTargets(t *testing.T) {
	w := dayWindows()[1]
	adj := model.Targets{Calories: 150, Protein: 24, Carbs: 30, Fat: 10}
	w.Adjusted = &adj
	w.Consumed = model.Intake{Calories: 150, Protein: 24, Carbs: 30, Fat: 10}
	if ws := NewScorer(nil).Window(w); ws.Score != 100 {
		t.Fatalf("expected adjusted targets to be scored, got %d", ws.Score)
	}
}

func TestWindowScorePurposeWeights(t *testing.T) {
	w := dayWindows()[0]
	w.Purpose = model.PurposeRecovery
	w.Flexibility = model.FlexStrict
	w.Consumed = model.Intake{Calories: 400, Protein: 19.5, Carbs: 40, Fat: 12}
	ws := NewScorer(nil).Window(w)
	if ws.Breakdown.Protein != 0 {
		t.Fatalf("expected protein sub-score 0, got %d", ws.Breakdown.Protein)
	}
	if ws.Score != 60 {
		t.Fatalf("expected protein-weighted score 60, got %d", ws.Score)
	}
	if ws.Insight != "Protein was 35% under target" {
		t.Fatalf("unexpected insight %q", ws.Insight)
	}
}

func TestWeightTableSums(t *testing.T) {
	table := DefaultWeights()
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
	for _, p := range model.Purposes {
		if sum := table.For(p).Sum(); sum != 100 {
			t.Fatalf("%s weights sum to %d", p, sum)
		}
	}
	bad := WeightTable{model.PurposeRecovery: {Calories: 50, Protein: 50, Carbs: 10}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for weights summing to 110")
	}
	unknown := WeightTable{"brunch": EqualWeights}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected error for unknown purpose")
	}
	merged := table.Merge(WeightTable{model.PurposeRecovery: EqualWeights})
	if merged.For(model.PurposeRecovery) != EqualWeights || merged.For(model.PurposePreWorkout).Carbs != 40 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

func TestDailyScoreOnTrack(t *testing.T) {
	windows := dayWindows()
	windows[0].Consumed = model.Intake{Calories: 400, Protein: 30, Carbs: 40, Fat: 12}
	meals := []model.LoggedMeal{{
		ID: "m1", WindowID: "a", Timestamp: at(8, 30),
		Calories: 400, Protein: 30, Carbs: 40, Fat: 12,
		Health: &model.HealthScore{Score: 80},
	}}
	ds := NewScorer(nil).Daily("2026-03-10", at(10, 0), windows, meals)
	b := ds.Breakdown
	if b.Adherence.Value != 100 || b.FoodQuality.Value != 80 || b.Timing.Value != 100 || b.Consistency.Value != 100 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if ds.Score != 95 || ds.Insight != "On target" {
		t.Fatalf("expected 95 on target, got %d %q", ds.Score, ds.Insight)
	}
	weights := 0
	for _, c := range b.Components() {
		weights += c.Weight
	}
	if weights != 100 {
		t.Fatalf("component weights sum to %d", weights)
	}
}

func TestDailyScorePenalizesBackLoading(t *testing.T) {
	windows := dayWindows()
	windows[2].Consumed = model.Intake{Calories: 800, Protein: 8, Carbs: 10, Fat: 4}
	meals := []model.LoggedMeal{{ID: "m1", WindowID: "c", Timestamp: at(18, 30), Calories: 800, Protein: 8, Carbs: 10, Fat: 4}}
	ds := NewScorer(nil).Daily("2026-03-10", at(20, 0), windows, meals)
	b := ds.Breakdown
	if b.Adherence.Value != 25 {
		t.Fatalf("expected adherence 25, got %v", b.Adherence.Value)
	}
	if b.Consistency.Value != 0 {
		t.Fatalf("expected consistency 0, got %v", b.Consistency.Value)
	}
	if ds.Score != 30 {
		t.Fatalf("expected score 30, got %d", ds.Score)
	}
	if !strings.Contains(ds.Insight, "Food quality") {
		t.Fatalf("expected lowest component insight, got %q", ds.Insight)
	}
}

func TestDailySkipsOpenAndFastedWindows(t *testing.T) {
	windows := dayWindows()
	windows[1].Fasted = true
	ds := NewScorer(nil).Daily("2026-03-10", at(15, 0), windows, nil)
	// a is missed and scores 0, b is fasted, c has not started.
	if ds.Breakdown.Adherence.Value != 0 {
		t.Fatalf("expected adherence 0, got %v", ds.Breakdown.Adherence.Value)
	}
	if ds.Breakdown.Timing.Value != 0 || ds.Breakdown.Consistency.Value != 100 {
		t.Fatalf("unexpected timing/consistency: %+v", ds.Breakdown)
	}
}

func TestTimingCountsUnassignedMeals(t *testing.T) {
	meals := []model.LoggedMeal{
		{ID: "m1", WindowID: "a", Timestamp: at(8, 30)},
		{ID: "m2", Timestamp: at(10, 30)},
		{ID: "m3", WindowID: "b", Timestamp: at(14, 0)},
		{ID: "m4", WindowID: "c", Timestamp: at(19, 0)},
	}
	if got := timing(dayWindows(), meals); got != 50 {
		t.Fatalf("expected timing 50, got %v", got)
	}
}
