package report

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/scoring"
	"github.com/verte-zerg/nutriplan/internal/window"
)

// Report holds everything derived from one day snapshot.
type Report struct {
	Snapshot day.Snapshot
	Daily    model.DailyScore
	Windows  []WindowRow
	Impact   nutrient.Impact
}

// WindowRow pairs a window with its state and, when scorable, its score.
type WindowRow struct {
	Window model.MealWindow
	State  window.State
	Score  *model.WindowScore
}

// Inputs configures Build.
type Inputs struct {
	Scorer   *scoring.Scorer
	Catalog  *nutrient.Catalog
	Sex      model.Sex
	Contexts []model.NutritionContext
}

// Build scores a snapshot and evaluates its micronutrient impact
// concurrently. Both read the same immutable snapshot.
func Build(ctx context.Context, snap day.Snapshot, in Inputs) (Report, error) {
	rep := Report{Snapshot: snap}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Windows = windowRows(in.Scorer, snap)
		if len(snap.Windows) > 0 {
			rep.Daily = in.Scorer.Daily(snap.Day, snap.Now, snap.Windows, snap.Meals)
		}
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.Impact = in.Catalog.Impact(nutrient.SumMicronutrients(snap.Meals), in.Sex, in.Contexts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func windowRows(sc *scoring.Scorer, snap day.Snapshot) []WindowRow {
	rows := make([]WindowRow, 0, len(snap.Windows))
	for _, w := range snap.Windows {
		row := WindowRow{Window: w, State: snap.States[w.ID]}
		if window.HasMeals(w, snap.Meals) || row.State.Terminal() {
			ws := sc.Window(w)
			row.Score = &ws
		}
		rows = append(rows, row)
	}
	return rows
}
