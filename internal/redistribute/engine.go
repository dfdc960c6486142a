// Package redistribute spreads over- and under-consumption of closed windows
// across the windows that follow them.
package redistribute

import (
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/window"
)

const (
	overThreshold  = 120.0
	underThreshold = 80.0
)

// Reason classifies a source window against its effective target at that
// point of the cascade. It returns nil when the window needs no redistribution.
func Reason(w model.MealWindow, effective model.Targets, state window.State, meals []model.LoggedMeal) model.RedistributionReason {
	if effective.Calories > 0 {
		percent := w.Consumed.Calories / float64(effective.Calories) * 100
		if percent > overThreshold {
			return model.Overconsumption{Percent: percent}
		}
		if state == window.Completed && percent < underThreshold {
			return model.Underconsumption{Percent: percent}
		}
	}
	if state == window.Missed && len(meals) == 0 {
		return model.MissedWindow{}
	}
	if len(meals) > 0 {
		first := meals[0].Timestamp
		if first.After(w.End) {
			return model.LateConsumption{}
		}
		if first.Before(w.Start) {
			return model.EarlyConsumption{}
		}
	}
	return nil
}

// Recompute rebuilds every adjustment of a day from scratch: consumed totals
// come from meals and prior Adjusted/Reason values are discarded. The result is
// ordered by start time and depends only on targets, meals and now.
func Recompute(now time.Time, windows []model.MealWindow, meals []model.LoggedMeal) []model.MealWindow {
	ordered := window.Ordered(windows)
	for i := range ordered {
		ordered[i] = ordered[i].Clone()
		ordered[i].Adjusted = nil
		ordered[i].Reason = nil
		ordered[i].Consumed = model.Intake{}
	}
	index := make(map[string]int, len(ordered))
	for i, w := range ordered {
		index[w.ID] = i
	}
	for _, m := range meals {
		if i, ok := index[m.WindowID]; ok {
			ordered[i].Consumed = ordered[i].Consumed.Add(m.Intake())
		}
	}

	eff := make([]model.Targets, len(ordered))
	reasons := make([]model.RedistributionReason, len(ordered))
	for i, w := range ordered {
		eff[i] = w.Target
	}

	for i, w := range ordered {
		var next *model.MealWindow
		if i+1 < len(ordered) {
			next = &ordered[i+1]
		}
		state := window.Classify(now, w, meals, next)
		in := window.MealsIn(w, meals)
		if !isSource(w, state, in) {
			continue
		}
		reason := Reason(w, eff[i], state, in)
		if reason == nil {
			continue
		}
		recipients := recipientsFrom(ordered, i, triggeredAt(w, state, in, next))
		if len(recipients) == 0 {
			continue
		}
		before := make([]model.Targets, len(recipients))
		for k, r := range recipients {
			before[k] = eff[r]
		}
		for _, f := range model.Fields {
			delta := w.Consumed.Field(f) - float64(eff[i].Field(f))
			// An open window can still receive meals; only its overshoot moves.
			if !state.Terminal() && delta < 0 {
				delta = 0
			}
			if delta == 0 {
				continue
			}
			base := make([]float64, len(recipients))
			weights := make([]float64, len(recipients))
			for k, r := range recipients {
				base[k] = float64(eff[r].Field(f))
				weights[k] = float64(ordered[r].Target.Field(f))
			}
			values := model.RoundPreservingSum(Spread(-delta, base, weights))
			for k, r := range recipients {
				eff[r] = eff[r].With(f, values[k])
			}
		}
		for k, r := range recipients {
			if eff[r] != before[k] {
				reasons[r] = reason
			}
		}
	}

	for i := range ordered {
		if eff[i] == ordered[i].Target {
			continue
		}
		adj := eff[i]
		ordered[i].Adjusted = &adj
		ordered[i].Reason = reasons[i]
	}
	return ordered
}

func isSource(w model.MealWindow, state window.State, meals []model.LoggedMeal) bool {
	if state.Terminal() {
		return true
	}
	return len(meals) > 0 && meals[0].Timestamp.Before(w.Start)
}

// triggeredAt returns the instant a source's redistribution becomes known:
// the end of the window, the start of its successor for a missed window, or
// the last meal logged after the window ended.
func triggeredAt(w model.MealWindow, state window.State, meals []model.LoggedMeal, next *model.MealWindow) time.Time {
	when := w.End
	if state == window.Missed && next != nil && next.Start.After(when) {
		when = next.Start
	}
	if n := len(meals); n > 0 && meals[n-1].Timestamp.After(when) {
		when = meals[n-1].Timestamp
	}
	return when
}

// recipientsFrom returns the non-fasted windows after src that had not
// started by the trigger instant.
func recipientsFrom(ordered []model.MealWindow, src int, trigger time.Time) []int {
	var out []int
	if end := ordered[src].End; trigger.Before(end) {
		trigger = end
	}
	for i := src + 1; i < len(ordered); i++ {
		w := ordered[i]
		if w.Fasted || w.Start.Before(trigger) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Spread adds amount to base in proportion to weights, equal shares when all
// weights are zero. No result goes below zero: a share that would cross the
// floor is clamped and the unabsorbed part is spread over the others. When
// every entry is clamped the remainder is dropped.
func Spread(amount float64, base, weights []float64) []float64 {
	out := make([]float64, len(base))
	copy(out, base)
	active := make([]int, len(base))
	for i := range active {
		active[i] = i
	}
	remaining := amount
	for len(active) > 0 && remaining != 0 {
		var sum float64
		for _, i := range active {
			if weights[i] > 0 {
				sum += weights[i]
			}
		}
		shares := make(map[int]float64, len(active))
		for _, i := range active {
			switch {
			case sum <= 0:
				shares[i] = remaining / float64(len(active))
			case weights[i] > 0:
				shares[i] = remaining * weights[i] / sum
			}
		}
		var kept []int
		for _, i := range active {
			if out[i]+shares[i] < 0 {
				remaining += out[i]
				out[i] = 0
				continue
			}
			kept = append(kept, i)
		}
		if len(kept) == len(active) {
			for _, i := range active {
				out[i] += shares[i]
			}
			return out
		}
		active = kept
	}
	return out
}
