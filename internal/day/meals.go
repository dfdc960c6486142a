package day

import (
	"context"
	"fmt"

	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/window"
)

// LogMeal records a meal for day and recomputes the day's adjustments. A meal
// without a timestamp is stamped with the current time. On a save failure the
// meal stays logged in memory and a *PersistError is returned.
func (s *Service) LogMeal(ctx context.Context, day string, meal model.LoggedMeal) (Snapshot, error) {
	st, err := s.lock(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	defer st.mu.Unlock()
	if !st.rec.Planned() {
		return Snapshot{}, ErrNoPlan
	}
	if meal.WindowID != "" && !hasWindow(st.rec.Windows, meal.WindowID) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownWindow, meal.WindowID)
	}
	now := s.clock.Now()
	meal = meal.Clone()
	if meal.ID == "" {
		meal.ID = s.newID()
	}
	if meal.Timestamp.IsZero() {
		meal.Timestamp = now
	}
	st.rec.Meals = append(st.rec.Meals, meal)
	st.refresh(now)
	snap := st.snapshot(now)
	return snap, s.persist(ctx, st.rec.Clone())
}

func hasWindow(windows []model.MealWindow, id string) bool {
	for _, w := range windows {
		if w.ID == id {
			return true
		}
	}
	return false
}

// Score computes the daily score of day at the current time.
func (s *Service) Score(ctx context.Context, day string) (model.DailyScore, error) {
	ds, _, err := s.Scores(ctx, day)
	return ds, err
}

// WindowScores scores every window of day that has meals or has closed.
func (s *Service) WindowScores(ctx context.Context, day string) ([]model.WindowScore, error) {
	_, ws, err := s.Scores(ctx, day)
	return ws, err
}

// Scores computes the daily score and the window scores of day from a single
// snapshot.
func (s *Service) Scores(ctx context.Context, day string) (model.DailyScore, []model.WindowScore, error) {
	snap, err := s.Snapshot(ctx, day)
	if err != nil {
		return model.DailyScore{}, nil, err
	}
	if len(snap.Windows) == 0 {
		return model.DailyScore{}, nil, ErrNoPlan
	}
	var out []model.WindowScore
	for _, w := range snap.Windows {
		if !window.HasMeals(w, snap.Meals) && !snap.States[w.ID].Terminal() {
			continue
		}
		out = append(out, s.scorer.Window(w))
	}
	return s.scorer.Daily(day, snap.Now, snap.Windows, snap.Meals), out, nil
}

// Impact evaluates the micronutrients logged for day under contexts.
func (s *Service) Impact(ctx context.Context, day string, contexts []model.NutritionContext) (nutrient.Impact, error) {
	snap, err := s.Snapshot(ctx, day)
	if err != nil {
		return nutrient.Impact{}, err
	}
	im := s.catalog.Impact(nutrient.SumMicronutrients(snap.Meals), s.profile.Sex, contexts)
	if len(im.Unmatched) > 0 {
		s.log.Warn("unmatched nutrients", "day", day, "names", im.Unmatched)
	}
	return im, nil
}
