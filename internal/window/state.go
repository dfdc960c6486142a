// Package window classifies meal windows relative to the current time.
package window

import (
	"sort"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// State is the lifecycle position of a window at some instant.
type State string

// Window states.
const (
	Upcoming      State = "upcoming"
	Active        State = "active"
	LateButDoable State = "late-but-doable"
	Completed     State = "completed"
	Missed        State = "missed"
)

// lateGrace is how long a final window stays doable after it ends.
const lateGrace = 2 * time.Hour

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s == Completed || s == Missed
}

// Classify returns the state of w at now. next is the chronologically
// following window, or nil when w is the last of the day.
func Classify(now time.Time, w model.MealWindow, meals []model.LoggedMeal, next *model.MealWindow) State {
	switch {
	case now.Before(w.Start):
		return Upcoming
	case !now.After(w.End):
		return Active
	case HasMeals(w, meals):
		return Completed
	case next != nil && now.Before(next.Start):
		return LateButDoable
	case next == nil && now.Sub(w.End) < lateGrace:
		return LateButDoable
	default:
		return Missed
	}
}

// HasMeals reports whether any meal is assigned to w.
func HasMeals(w model.MealWindow, meals []model.LoggedMeal) bool {
	for _, m := range meals {
		if m.WindowID == w.ID {
			return true
		}
	}
	return false
}

// MealsIn returns the meals assigned to w ordered by timestamp.
func MealsIn(w model.MealWindow, meals []model.LoggedMeal) []model.LoggedMeal {
	var out []model.LoggedMeal
	for _, m := range meals {
		if m.WindowID == w.ID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Ordered returns a copy of windows sorted by start time, then ID.
func Ordered(windows []model.MealWindow) []model.MealWindow {
	out := make([]model.MealWindow, len(windows))
	copy(out, windows)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ClassifyDay classifies every window using its chronological successor.
// The result is keyed by window ID.
func ClassifyDay(now time.Time, windows []model.MealWindow, meals []model.LoggedMeal) map[string]State {
	ordered := Ordered(windows)
	out := make(map[string]State, len(ordered))
	for i, w := range ordered {
		var next *model.MealWindow
		if i+1 < len(ordered) {
			next = &ordered[i+1]
		}
		out[w.ID] = Classify(now, w, meals, next)
	}
	return out
}

// TimeRemaining returns the time left in w. ok is false unless w is active.
func TimeRemaining(now time.Time, w model.MealWindow) (time.Duration, bool) {
	if now.Before(w.Start) || now.After(w.End) {
		return 0, false
	}
	return w.End.Sub(now), true
}

// HoursLate returns hours elapsed since w ended. ok is false until w has ended.
func HoursLate(now time.Time, w model.MealWindow) (float64, bool) {
	if !now.After(w.End) {
		return 0, false
	}
	return now.Sub(w.End).Hours(), true
}
