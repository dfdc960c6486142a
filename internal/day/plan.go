package day

import (
	"context"
	"math"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/planner"
)

// FullDayRequest asks for a full-day plan.
type FullDayRequest struct {
	Day     time.Time
	Wake    *model.TimeOfDay
	Sleep   *model.TimeOfDay
	Workout *model.TimeOfDay
	Energy  model.Energy
	// Targets overrides the profile's daily targets.
	Targets *model.Targets
}

// PartialResult is the outcome of a partial-day plan request.
type PartialResult struct {
	Snapshot Snapshot
	Plan     planner.PartialPlan
	// Tomorrow is set when too little of today remained and a full plan for
	// tomorrow was installed instead.
	Tomorrow bool
}

// PlanFullDay builds and installs a full-day plan, superseding any earlier
// plan of the same day.
func (s *Service) PlanFullDay(ctx context.Context, req FullDayRequest) (Snapshot, error) {
	day := DayKey(req.Day)
	if err := s.preload(ctx, day); err != nil {
		return Snapshot{}, err
	}
	gen := s.gen.Add(1)
	prof := s.profile
	if req.Wake != nil {
		prof.Wake = *req.Wake
	}
	if req.Sleep != nil {
		prof.Sleep = *req.Sleep
	}
	windows := s.planner.FullDay(planner.FullDayInput{
		Day:     req.Day,
		Profile: prof,
		Targets: req.Targets,
		Workout: req.Workout,
		Energy:  req.Energy,
	})
	return s.install(ctx, day, gen, windows)
}

// PlanPartialDay plans the rest of today. When the day is nearly over it
// plans tomorrow instead.
func (s *Service) PlanPartialDay(ctx context.Context) (PartialResult, error) {
	now := s.clock.Now()
	day := DayKey(now)
	if err := s.preload(ctx, day); err != nil {
		return PartialResult{}, err
	}
	gen := s.gen.Add(1)
	plan := s.planner.PartialDay(planner.PartialDayInput{Now: now, Profile: s.profile})
	if plan.ShowTomorrowPlan {
		s.log.Info("too late for a partial plan, planning tomorrow", "day", day, "remaining_hours", plan.RemainingHours)
		snap, err := s.PlanFullDay(ctx, FullDayRequest{Day: now.AddDate(0, 0, 1)})
		return PartialResult{Snapshot: snap, Plan: plan, Tomorrow: true}, err
	}
	snap, err := s.install(ctx, day, gen, plan.Windows)
	return PartialResult{Snapshot: snap, Plan: plan}, err
}

// CheckIn plans a day from a daily check-in. Quick meals already eaten are
// subtracted from the daily targets before planning.
func (s *Service) CheckIn(ctx context.Context, in model.CheckIn) (Snapshot, error) {
	day := in.Day
	if day.IsZero() {
		day = s.clock.Now()
	}
	targets := s.profile.Targets
	var eaten model.Intake
	for _, m := range in.QuickMeals {
		eaten = eaten.Add(m.Intake())
	}
	for _, f := range model.Fields {
		left := float64(targets.Field(f)) - eaten.Field(f)
		targets = targets.With(f, model.RoundHalfAway(math.Max(0, left)))
	}
	return s.PlanFullDay(ctx, FullDayRequest{
		Day:     day,
		Wake:    in.Wake,
		Sleep:   in.Sleep,
		Workout: in.Workout,
		Energy:  in.Energy,
		Targets: &targets,
	})
}

func (s *Service) preload(ctx context.Context, day string) error {
	st, err := s.lock(ctx, day)
	if err != nil {
		return err
	}
	st.mu.Unlock()
	return nil
}

// install replaces the windows of day unless a newer generation already
// landed. Existing meals are kept and reassigned to the new window that
// contains them.
func (s *Service) install(ctx context.Context, day string, gen int64, windows []model.MealWindow) (Snapshot, error) {
	st, err := s.lock(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	defer st.mu.Unlock()
	now := s.clock.Now()
	if gen < st.rec.Generation {
		s.log.Info("discarded superseded plan", "day", day, "generation", gen, "current", st.rec.Generation)
		return st.snapshot(now), nil
	}
	if st.rec.Planned() {
		s.log.Info("superseding plan", "day", day, "previous", st.rec.Generation, "generation", gen)
	}
	st.rec.Generation = gen
	st.rec.PlannedAt = now
	st.rec.Windows = windows
	for i, m := range st.rec.Meals {
		st.rec.Meals[i].WindowID = containing(windows, m.Timestamp)
	}
	st.refresh(now)
	snap := st.snapshot(now)
	return snap, s.persist(ctx, st.rec.Clone())
}

func containing(windows []model.MealWindow, t time.Time) string {
	for _, w := range windows {
		if w.Contains(t) {
			return w.ID
		}
	}
	return ""
}
