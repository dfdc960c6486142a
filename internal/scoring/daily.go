package scoring

import (
	"math"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/window"
)

// Daily component names.
const (
	ComponentAdherence   = "adherence"
	ComponentFoodQuality = "food-quality"
	ComponentTiming      = "timing"
	ComponentConsistency = "consistency"
)

// Daily component weights in percent.
const (
	AdherenceWeight   = 40
	FoodQualityWeight = 25
	TimingWeight      = 20
	ConsistencyWeight = 15
)

// Daily scores a day at now. Windows should carry consumed totals and
// adjustments, as returned by redistribution.
func (s *Scorer) Daily(day string, now time.Time, windows []model.MealWindow, meals []model.LoggedMeal) model.DailyScore {
	b := model.DailyBreakdown{
		Adherence:   model.DailyComponent{Name: ComponentAdherence, Weight: AdherenceWeight, Value: s.adherence(now, windows, meals)},
		FoodQuality: model.DailyComponent{Name: ComponentFoodQuality, Weight: FoodQualityWeight, Value: foodQuality(meals)},
		Timing:      model.DailyComponent{Name: ComponentTiming, Weight: TimingWeight, Value: timing(windows, meals)},
		Consistency: model.DailyComponent{Name: ComponentConsistency, Weight: ConsistencyWeight, Value: consistency(windows, meals)},
	}
	var total float64
	for _, c := range b.Components() {
		total += c.Value * float64(c.Weight) / 100
	}
	score := clampScore(model.RoundHalfAway(total))
	return model.DailyScore{
		Day:       day,
		Score:     score,
		Breakdown: b,
		Insight:   dailyInsight(score, b),
	}
}

// adherence is the mean window score over windows that are closed or have
// meals. Fasted windows without meals are skipped.
func (s *Scorer) adherence(now time.Time, windows []model.MealWindow, meals []model.LoggedMeal) float64 {
	states := window.ClassifyDay(now, windows, meals)
	var sum float64
	n := 0
	for _, w := range windows {
		has := window.HasMeals(w, meals)
		if w.Fasted && !has {
			continue
		}
		if !has && !states[w.ID].Terminal() {
			continue
		}
		sum += float64(s.Window(w).Score)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func foodQuality(meals []model.LoggedMeal) float64 {
	var sum float64
	n := 0
	for _, m := range meals {
		if m.Health == nil {
			continue
		}
		sum += float64(m.Health.Score)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// timing is the share of meals whose timestamp lies within their assigned
// window. Unassigned meals count against it.
func timing(windows []model.MealWindow, meals []model.LoggedMeal) float64 {
	if len(meals) == 0 {
		return 0
	}
	byID := make(map[string]model.MealWindow, len(windows))
	for _, w := range windows {
		byID[w.ID] = w
	}
	inside := 0
	for _, m := range meals {
		if w, ok := byID[m.WindowID]; ok && w.Contains(m.Timestamp) {
			inside++
		}
	}
	return 100 * float64(inside) / float64(len(meals))
}

// consistency penalizes eating a larger calorie share after the midpoint of
// the planned span than the plan itself puts there.
func consistency(windows []model.MealWindow, meals []model.LoggedMeal) float64 {
	if len(windows) == 0 {
		return 100
	}
	start, end := windows[0].Start, windows[0].End
	for _, w := range windows[1:] {
		if w.Start.Before(start) {
			start = w.Start
		}
		if w.End.After(end) {
			end = w.End
		}
	}
	mid := start.Add(end.Sub(start) / 2)

	var planned, plannedLate float64
	for _, w := range windows {
		cal := float64(w.Effective().Calories)
		planned += cal
		if !w.Start.Before(mid) {
			plannedLate += cal
		}
	}
	var eaten, eatenLate float64
	for _, m := range meals {
		eaten += m.Calories
		if !m.Timestamp.Before(mid) {
			eatenLate += m.Calories
		}
	}
	if eaten <= 0 {
		return 100
	}
	plannedShare := 0.0
	if planned > 0 {
		plannedShare = plannedLate / planned
	}
	excess := math.Max(0, eatenLate/eaten-plannedShare)
	return 100 * math.Max(0, 1-2*excess)
}
