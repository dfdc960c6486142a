// Package planner builds the meal windows of a day.
package planner

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/nutriplan/internal/model"
)

const (
	wakeOffset       = 30 * time.Minute
	firstWindowDelay = 30 * time.Minute
	bedtimeBuffer    = 3 * time.Hour
	minWindow        = time.Hour
	maxWindow        = 2 * time.Hour
	minSpacing       = 2 * time.Hour
	tomorrowHour     = 20
	minRemainingHr   = 2.0
)

// Planner generates full-day and partial-day window sets.
type Planner struct {
	policy Policy
	newID  func() string
}

// Option configures a Planner.
type Option func(*Planner)

// WithPolicy overrides the full-day purpose policy.
func WithPolicy(p Policy) Option {
	return func(pl *Planner) {
		pl.policy = p
	}
}

// WithIDs overrides window ID generation.
func WithIDs(newID func() string) Option {
	return func(pl *Planner) {
		pl.newID = newID
	}
}

// New returns a Planner using DefaultPolicy and random UUIDs.
func New(opts ...Option) *Planner {
	p := &Planner{policy: DefaultPolicy{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FullDayInput describes a full-day plan request.
type FullDayInput struct {
	// Day is any instant on the plan day; its location is used for wall times.
	Day     time.Time
	Profile model.Profile
	// Targets overrides Profile.Targets when set.
	Targets *model.Targets
	Workout *model.TimeOfDay
	Energy  model.Energy
}

// FullDay returns 3-6 windows spanning the waking hours of the day. Window
// targets sum to the daily targets.
func (p *Planner) FullDay(in FullDayInput) []model.MealWindow {
	prof := in.Profile.Normalized()
	targets := prof.Targets
	if in.Targets != nil {
		targets = *in.Targets
	}
	wake := prof.Wake.On(in.Day)
	bedtime := prof.Sleep.On(in.Day)
	if !bedtime.After(wake) {
		bedtime = bedtime.Add(24 * time.Hour)
	}
	n := prof.WindowsPerDay
	start := wake.Add(wakeOffset)
	end := bedtime.Add(-bedtimeBuffer)
	if span := end.Sub(start); span < time.Duration(n)*minWindow {
		end = start.Add(time.Duration(n) * minWindow)
	}
	slots := layoutSlots(start, end, n)

	var workout *time.Time
	if in.Workout != nil {
		w := in.Workout.On(in.Day)
		if w.Before(wake) {
			w = w.Add(24 * time.Hour)
		}
		workout = &w
	}
	assignments := p.policy.Assign(PolicyInput{Slots: slots, Workout: workout, Energy: in.Energy})
	purposes := make([]model.Purpose, len(assignments))
	for i, a := range assignments {
		purposes[i] = a.Purpose
	}
	alloc := allocate(targets, purposes)

	day := in.Day.Format(model.DayLayout)
	windows := make([]model.MealWindow, 0, len(slots))
	for i, s := range slots {
		windows = append(windows, model.MealWindow{
			ID:          p.newID(),
			Day:         day,
			Start:       s.Start,
			End:         s.End,
			Purpose:     assignments[i].Purpose,
			Flexibility: assignments[i].Flexibility,
			Target:      alloc[i],
		})
	}
	return p.splitAll(windows)
}

func layoutSlots(start, end time.Time, n int) []Slot {
	slot := end.Sub(start) / time.Duration(n)
	dur := slot / 2
	if dur < minWindow {
		dur = minWindow
	}
	if dur > maxWindow {
		dur = maxWindow
	}
	if dur > slot {
		dur = slot
	}
	out := make([]Slot, n)
	for i := range out {
		s := start.Add(time.Duration(i) * slot)
		out[i] = Slot{Start: s, End: s.Add(dur)}
	}
	return out
}

// PartialDayInput describes a plan for the remainder of a day.
type PartialDayInput struct {
	Now     time.Time
	Profile model.Profile
}

// PartialPlan is the result of partial-day planning.
type PartialPlan struct {
	Windows []model.MealWindow
	// ShowTomorrowPlan is set when no windows fit today; callers fall back to
	// a full-day plan for tomorrow.
	ShowTomorrowPlan bool
	RemainingHours   float64
	TotalWakingHours float64
	Factor           float64
	ProRated         model.Targets
}

// PartialDay pro-rates the daily targets to the hours left before the bedtime
// buffer and lays out up to three windows starting 30 minutes from now.
func (p *Planner) PartialDay(in PartialDayInput) PartialPlan {
	prof := in.Profile.Normalized()
	now := in.Now

	bedtime := prof.Sleep.On(now)
	if bedtime.Before(now) {
		bedtime = bedtime.Add(24 * time.Hour)
	}
	remaining := math.Max(0, bedtime.Add(-bedtimeBuffer).Sub(now).Hours())
	waking := wakingHours(prof.Wake, prof.Sleep)

	plan := PartialPlan{RemainingHours: remaining, TotalWakingHours: waking}
	if now.Hour() >= tomorrowHour || remaining < minRemainingHr {
		plan.ShowTomorrowPlan = true
		return plan
	}

	plan.Factor = remaining / waking
	plan.ProRated = scaleTargets(prof.Targets, plan.Factor)

	n := partialWindowCount(remaining)
	purposes := partialPurposes(n, now.Hour())
	alloc := allocate(plan.ProRated, purposes)

	duration := time.Duration(math.Max(1, remaining/float64(n+1)) * float64(time.Hour))
	spacing := time.Duration(math.Max(minSpacing.Hours(), duration.Hours()*0.5) * float64(time.Hour))

	day := now.Format(model.DayLayout)
	start := now.Add(firstWindowDelay)
	windows := make([]model.MealWindow, 0, n)
	for i, purpose := range purposes {
		end := start.Add(duration)
		windows = append(windows, model.MealWindow{
			ID:          p.newID(),
			Day:         day,
			Start:       start,
			End:         end,
			Purpose:     purpose,
			Flexibility: model.FlexModerate,
			Target:      alloc[i],
		})
		start = end.Add(spacing)
	}
	plan.Windows = p.splitAll(windows)
	return plan
}

func partialWindowCount(remaining float64) int {
	switch {
	case remaining >= 6:
		return 3
	case remaining >= 4:
		return 2
	case remaining >= 2:
		return 1
	default:
		return 0
	}
}

// wakingHours measures from wake forward to sleep, so a bedtime after midnight
// counts the hours across it.
func wakingHours(wake, sleep model.TimeOfDay) float64 {
	h := sleep.Hours() - wake.Hours()
	if h < 0 {
		h += 24
	}
	if h == 0 {
		h = model.DefaultSleep.Hours() - model.DefaultWake.Hours()
	}
	return h
}

func (p *Planner) splitAll(windows []model.MealWindow) []model.MealWindow {
	out := make([]model.MealWindow, 0, len(windows))
	for _, w := range windows {
		out = append(out, SplitAtMidnight(w, p.newID)...)
	}
	return out
}

// SplitAtMidnight splits a window whose start and end fall on different
// calendar days. Both halves keep purpose, flexibility and day; targets are
// apportioned by duration on each side of midnight, rounding the earlier half
// and giving the remainder to the later half.
func SplitAtMidnight(w model.MealWindow, newID func() string) []model.MealWindow {
	y, m, d := w.Start.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, w.Start.Location())
	if !w.End.After(midnight) || !w.Start.Before(midnight) {
		return []model.MealWindow{w}
	}
	frac := float64(midnight.Sub(w.Start)) / float64(w.End.Sub(w.Start))

	before := w.Clone()
	after := w.Clone()
	before.End = midnight
	after.Start = midnight
	after.ID = newID()
	before.Target, after.Target = splitTargets(w.Target, frac)
	if w.Adjusted != nil {
		b, a := splitTargets(*w.Adjusted, frac)
		before.Adjusted, after.Adjusted = &b, &a
	}
	return append([]model.MealWindow{before}, SplitAtMidnight(after, newID)...)
}

func splitTargets(t model.Targets, frac float64) (model.Targets, model.Targets) {
	var before, after model.Targets
	for _, f := range model.Fields {
		v := t.Field(f)
		b := model.RoundHalfAway(float64(v) * frac)
		before = before.With(f, b)
		after = after.With(f, v-b)
	}
	return before, after
}
