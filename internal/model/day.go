package model

import "time"

// DayRecord is the persisted aggregate of one plan day.
type DayRecord struct {
	Day string
	// Generation increases with every plan; a newer plan supersedes older ones.
	Generation int64
	PlannedAt  time.Time
	Windows    []MealWindow
	Meals      []LoggedMeal
}

// Clone returns a deep copy.
func (r DayRecord) Clone() DayRecord {
	out := r
	out.Windows = make([]MealWindow, len(r.Windows))
	for i, w := range r.Windows {
		out.Windows[i] = w.Clone()
	}
	out.Meals = make([]LoggedMeal, len(r.Meals))
	for i, m := range r.Meals {
		out.Meals[i] = m.Clone()
	}
	return out
}

// Planned reports whether the record holds a plan.
func (r DayRecord) Planned() bool {
	return len(r.Windows) > 0
}
