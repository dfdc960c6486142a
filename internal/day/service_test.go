package day

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/nutriplan/internal/clock"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/planner"
	"github.com/verte-zerg/nutriplan/internal/store"
)

type memRepo struct {
	mu      sync.Mutex
	days    map[string]model.DayRecord
	saves   int
	failErr error
}

func newMemRepo() *memRepo {
	return &memRepo{days: map[string]model.DayRecord{}}
}

func (r *memRepo) LoadDay(_ context.Context, day string) (store.LoadResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.days[day]
	if !ok {
		return store.LoadResult{}, nil
	}
	return store.LoadResult{Record: rec.Clone(), Found: true}, nil
}

func (r *memRepo) SaveDay(_ context.Context, rec model.DayRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.saves++
	r.days[rec.Day] = rec.Clone()
	return nil
}

func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 10, h, m, 0, 0, time.UTC)
}

func newTestService(repo Repository, c clock.Clock) *Service {
	opts := []Option{
		WithClock(c),
		WithPlanner(planner.New(planner.WithIDs(seqIDs("w")))),
		WithIDs(seqIDs("m")),
	}
	if repo != nil {
		opts = append(opts, WithRepository(repo))
	}
	return NewService(model.Profile{}, opts...)
}

func TestPlanFullDayPersists(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, clock.Fixed{T: at(6, 0)})
	snap, err := svc.PlanFullDay(context.Background(), FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(snap.Windows) != model.DefaultWindowsPerDay {
		t.Fatalf("expected %d windows, got %d", model.DefaultWindowsPerDay, len(snap.Windows))
	}
	saved := repo.days["2026-03-10"]
	if saved.Generation != snap.Generation || len(saved.Windows) != len(snap.Windows) {
		t.Fatalf("plan not persisted: %+v", saved)
	}
}

func TestLogMealRequiresPlan(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(9, 0)})
	_, err := svc.LogMeal(context.Background(), "2026-03-10", model.LoggedMeal{Calories: 300})
	if !errors.Is(err, ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan, got %v", err)
	}
}

func TestLogMealRejectsUnknownWindow(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(9, 0)})
	ctx := context.Background()
	if _, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	_, err := svc.LogMeal(ctx, "2026-03-10", model.LoggedMeal{WindowID: "nope", Calories: 300})
	if !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestLogMealRedistributesAfterClosure(t *testing.T) {
	c := &testClock{t: at(7, 0)}
	svc := newTestService(nil, c)
	ctx := context.Background()
	snap, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	first := snap.Windows[0]
	laterTotal := 0
	for _, w := range snap.Windows[1:] {
		laterTotal += w.Target.Calories
	}

	c.Set(first.Start.Add(10 * time.Minute))
	over := float64(first.Target.Calories) * 1.5
	if _, err := svc.LogMeal(ctx, "2026-03-10", model.LoggedMeal{WindowID: first.ID, Calories: over}); err != nil {
		t.Fatalf("log meal: %v", err)
	}

	c.Set(first.End.Add(5 * time.Minute))
	snap, err = svc.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	adjustedTotal := 0
	for _, w := range snap.Windows[1:] {
		adjustedTotal += w.Effective().Calories
		if w.Reason == nil {
			t.Fatalf("expected reason on window %s", w.ID)
		}
	}
	wantDrop := model.RoundHalfAway(over) - first.Target.Calories
	if laterTotal-adjustedTotal != wantDrop {
		t.Fatalf("expected later windows to drop by %d, dropped %d", wantDrop, laterTotal-adjustedTotal)
	}
	if snap.Meals[0].ID != "m1" {
		t.Fatalf("expected generated meal ID, got %q", snap.Meals[0].ID)
	}
}

func TestLogMealKeepsMealOnPersistFailure(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, clock.Fixed{T: at(9, 0)})
	ctx := context.Background()
	if _, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	repo.failErr = errors.New("disk full")
	_, err := svc.LogMeal(ctx, "2026-03-10", model.LoggedMeal{Calories: 250})
	var perr *PersistError
	if !errors.As(err, &perr) || perr.Day != "2026-03-10" {
		t.Fatalf("expected PersistError, got %v", err)
	}
	snap, err := svc.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Meals) != 1 {
		t.Fatalf("expected meal kept in memory, got %d", len(snap.Meals))
	}
}

func TestNewPlanSupersedesAndReassignsMeals(t *testing.T) {
	c := &testClock{t: at(7, 0)}
	svc := newTestService(nil, c)
	ctx := context.Background()
	first, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	w := first.Windows[0]
	c.Set(w.Start.Add(5 * time.Minute))
	if _, err := svc.LogMeal(ctx, "2026-03-10", model.LoggedMeal{WindowID: w.ID, Calories: 200}); err != nil {
		t.Fatalf("log meal: %v", err)
	}
	workout := model.TimeOfDay{Hour: 13}
	second, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0), Workout: &workout})
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if second.Generation <= first.Generation {
		t.Fatalf("expected newer generation, got %d after %d", second.Generation, first.Generation)
	}
	if second.Windows[0].ID == w.ID {
		t.Fatalf("expected fresh windows")
	}
	if len(second.Meals) != 1 || second.Meals[0].WindowID != second.Windows[0].ID {
		t.Fatalf("expected meal reassigned to new first window, got %+v", second.Meals)
	}
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(6, 0)})
	ctx := context.Background()
	if _, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	current, err := svc.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	stale := []model.MealWindow{{ID: "stale", Start: at(8, 0), End: at(9, 0)}}
	snap, err := svc.install(ctx, "2026-03-10", current.Generation-1, stale)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if snap.Generation != current.Generation || snap.Windows[0].ID == "stale" {
		t.Fatalf("stale plan must not replace current plan")
	}
}

func TestGenerationSurvivesReload(t *testing.T) {
	repo := newMemRepo()
	repo.days["2026-03-10"] = model.DayRecord{
		Day: "2026-03-10", Generation: 41,
		Windows: []model.MealWindow{{ID: "old", Start: at(8, 0), End: at(9, 0), Target: model.Targets{Calories: 500}}},
	}
	svc := newTestService(repo, clock.Fixed{T: at(6, 0)})
	snap, err := svc.PlanFullDay(context.Background(), FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if snap.Generation != 42 || snap.Windows[0].ID == "old" {
		t.Fatalf("expected generation 42 replacing stored plan, got %d", snap.Generation)
	}
}

func TestPlanPartialDayFallsBackToTomorrow(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(21, 0)})
	res, err := svc.PlanPartialDay(context.Background())
	if err != nil {
		t.Fatalf("partial plan: %v", err)
	}
	if !res.Tomorrow || !res.Plan.ShowTomorrowPlan {
		t.Fatalf("expected tomorrow fallback")
	}
	if res.Snapshot.Day != "2026-03-11" || len(res.Snapshot.Windows) == 0 {
		t.Fatalf("expected tomorrow's plan installed, got %+v", res.Snapshot)
	}
}

func TestPlanPartialDay(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(14, 0)})
	res, err := svc.PlanPartialDay(context.Background())
	if err != nil {
		t.Fatalf("partial plan: %v", err)
	}
	if res.Tomorrow || len(res.Snapshot.Windows) != 3 {
		t.Fatalf("expected 3 partial windows today, got %+v", res)
	}
}

func TestCheckInSubtractsQuickMeals(t *testing.T) {
	svc := newTestService(nil, clock.Fixed{T: at(6, 0)})
	snap, err := svc.CheckIn(context.Background(), model.CheckIn{
		Day:        at(0, 0),
		QuickMeals: []model.LoggedMeal{{Calories: 500, Protein: 30, Carbs: 50, Fat: 17}},
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	var total model.Targets
	for _, w := range snap.Windows {
		total = total.Add(w.Target)
	}
	want := model.Targets{Calories: 1500, Protein: 120, Carbs: 150, Fat: 50}
	if total != want {
		t.Fatalf("expected %+v, got %+v", want, total)
	}
}

func TestScoreAndImpact(t *testing.T) {
	c := &testClock{t: at(6, 0)}
	svc := newTestService(nil, c)
	ctx := context.Background()
	if _, err := svc.Score(ctx, "2026-03-10"); !errors.Is(err, ErrNoPlan) {
		t.Fatalf("expected ErrNoPlan before planning, got %v", err)
	}
	snap, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	w := snap.Windows[0]
	c.Set(w.Start.Add(10 * time.Minute))
	meal := model.LoggedMeal{
		WindowID: w.ID,
		Calories: float64(w.Target.Calories), Protein: float64(w.Target.Protein),
		Carbs: float64(w.Target.Carbs), Fat: float64(w.Target.Fat),
		Micronutrients: map[string]float64{"Vitamin C": 90, "unobtanium": 1},
		Health:         &model.HealthScore{Score: 90},
	}
	if _, err := svc.LogMeal(ctx, "2026-03-10", meal); err != nil {
		t.Fatalf("log meal: %v", err)
	}
	ds, err := svc.Score(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if ds.Breakdown.Adherence.Value != 100 || ds.Breakdown.FoodQuality.Value != 90 {
		t.Fatalf("unexpected breakdown: %+v", ds.Breakdown)
	}
	scores, err := svc.WindowScores(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("window scores: %v", err)
	}
	if len(scores) != 1 || scores[0].Score != 100 {
		t.Fatalf("expected one perfect window score, got %+v", scores)
	}
	im, err := svc.Impact(ctx, "2026-03-10", nil)
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if len(im.Unmatched) != 1 || im.Unmatched[0] != "unobtanium" {
		t.Fatalf("expected unobtanium unmatched, got %v", im.Unmatched)
	}
}

func TestConcurrentLogMeal(t *testing.T) {
	svc := newTestService(newMemRepo(), clock.Fixed{T: at(9, 0)})
	ctx := context.Background()
	if _, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.LogMeal(ctx, "2026-03-10", model.LoggedMeal{Calories: 50}); err != nil {
				t.Errorf("log meal: %v", err)
			}
		}()
	}
	wg.Wait()
	snap, err := svc.Snapshot(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Meals) != 20 {
		t.Fatalf("expected 20 meals, got %d", len(snap.Meals))
	}
}

type countingClock struct {
	mu    sync.Mutex
	t     time.Time
	step  time.Duration
	calls int
}

func (c *countingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func TestScoresReadOneSnapshot(t *testing.T) {
	c := &countingClock{t: at(6, 0)}
	svc := newTestService(nil, c)
	ctx := context.Background()
	snap, err := svc.PlanFullDay(ctx, FullDayRequest{Day: at(0, 0)})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	first := snap.Windows[0]
	// Every later read of the clock lands two hours further on, past the
	// first window's end.
	c.mu.Lock()
	c.t, c.step, c.calls = first.End.Add(-time.Minute), 2*time.Hour, 0
	c.mu.Unlock()

	ds, ws, err := svc.Scores(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("expected one clock read, got %d", c.calls)
	}
	if ds.Day != "2026-03-10" {
		t.Fatalf("unexpected day %q", ds.Day)
	}
	// At the snapshot instant the first window is still open and empty.
	if len(ws) != 0 {
		t.Fatalf("expected no window scores at the snapshot instant, got %+v", ws)
	}
}
