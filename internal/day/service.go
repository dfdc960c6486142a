// Package day owns the per-day plan aggregate: windows, meals and the plan
// generation. All writes for a day go through one lock.
package day

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/nutriplan/internal/clock"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/planner"
	"github.com/verte-zerg/nutriplan/internal/redistribute"
	"github.com/verte-zerg/nutriplan/internal/scoring"
	"github.com/verte-zerg/nutriplan/internal/store"
	"github.com/verte-zerg/nutriplan/internal/window"
)

var (
	// ErrNoPlan is returned when a day has no windows yet.
	ErrNoPlan = errors.New("no plan for day")
	// ErrUnknownWindow is returned when a meal names a window the day does not have.
	ErrUnknownWindow = errors.New("unknown window")
)

// PersistError reports a failed save. The in-memory state already holds the
// change that could not be saved.
type PersistError struct {
	Day string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist day %s: %v", e.Day, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Repository loads and saves day aggregates.
type Repository interface {
	LoadDay(ctx context.Context, day string) (store.LoadResult, error)
	SaveDay(ctx context.Context, rec model.DayRecord) error
}

// Snapshot is a point-in-time copy of a day.
type Snapshot struct {
	Day        string
	Generation int64
	Now        time.Time
	Windows    []model.MealWindow
	Meals      []model.LoggedMeal
	States     map[string]window.State
}

// Service coordinates planning, logging and scoring for plan days.
type Service struct {
	repo    Repository
	planner *planner.Planner
	scorer  *scoring.Scorer
	catalog *nutrient.Catalog
	clock   clock.Clock
	log     *slog.Logger
	profile model.Profile
	newID   func() string

	mu   sync.Mutex
	days map[string]*dayState
	gen  atomic.Int64
}

type dayState struct {
	mu     sync.Mutex
	loaded bool
	rec    model.DayRecord
}

// Option configures a Service.
type Option func(*Service)

// WithRepository persists days through repo.
func WithRepository(repo Repository) Option {
	return func(s *Service) { s.repo = repo }
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithPlanner sets the window planner.
func WithPlanner(p *planner.Planner) Option {
	return func(s *Service) { s.planner = p }
}

// WithScorer sets the scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) { s.scorer = sc }
}

// WithCatalog sets the nutrient catalog.
func WithCatalog(c *nutrient.Catalog) Option {
	return func(s *Service) { s.catalog = c }
}

// WithIDs overrides meal ID generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService returns a Service for profile. Without a repository days live
// only in memory.
func NewService(profile model.Profile, opts ...Option) *Service {
	s := &Service{
		planner: planner.New(),
		scorer:  scoring.NewScorer(nil),
		catalog: nutrient.Default(),
		clock:   clock.Real{},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		profile: profile.Normalized(),
		newID:   uuid.NewString,
		days:    make(map[string]*dayState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Profile returns the normalized profile.
func (s *Service) Profile() model.Profile {
	return s.profile
}

// Scorer returns the active scorer.
func (s *Service) Scorer() *scoring.Scorer {
	return s.scorer
}

// Catalog returns the nutrient catalog.
func (s *Service) Catalog() *nutrient.Catalog {
	return s.catalog
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) state(day string) *dayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.days[day]
	if !ok {
		st = &dayState{rec: model.DayRecord{Day: day}}
		s.days[day] = st
	}
	return st
}

// lock returns the locked state of day, loading it on first use. The caller
// must unlock st.mu.
func (s *Service) lock(ctx context.Context, day string) (*dayState, error) {
	st := s.state(day)
	st.mu.Lock()
	if st.loaded || s.repo == nil {
		st.loaded = true
		return st, nil
	}
	res, err := s.repo.LoadDay(ctx, day)
	if err != nil {
		st.mu.Unlock()
		return nil, fmt.Errorf("failed to load day %s: %w", day, err)
	}
	if res.Rejected > 0 {
		s.log.Warn("skipped malformed rows", "day", day, "rejected", res.Rejected)
	}
	if res.Found {
		st.rec = res.Record
		st.rec.Day = day
		s.bumpGeneration(res.Record.Generation)
	}
	st.loaded = true
	return st, nil
}

func (s *Service) bumpGeneration(seen int64) {
	for {
		cur := s.gen.Load()
		if cur >= seen || s.gen.CompareAndSwap(cur, seen) {
			return
		}
	}
}

func (s *Service) persist(ctx context.Context, rec model.DayRecord) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveDay(ctx, rec); err != nil {
		s.log.Error("failed to persist day", "day", rec.Day, "err", err)
		return &PersistError{Day: rec.Day, Err: err}
	}
	return nil
}

// refresh recomputes consumed totals and adjustments at now in place.
func (st *dayState) refresh(now time.Time) {
	st.rec.Windows = redistribute.Recompute(now, st.rec.Windows, st.rec.Meals)
}

func (st *dayState) snapshot(now time.Time) Snapshot {
	rec := st.rec.Clone()
	rec.Windows = redistribute.Recompute(now, rec.Windows, rec.Meals)
	return Snapshot{
		Day:        rec.Day,
		Generation: rec.Generation,
		Now:        now,
		Windows:    rec.Windows,
		Meals:      rec.Meals,
		States:     window.ClassifyDay(now, rec.Windows, rec.Meals),
	}
}

// Snapshot returns a copy of day with adjustments current at now. A day
// without a plan returns an empty snapshot.
func (s *Service) Snapshot(ctx context.Context, day string) (Snapshot, error) {
	st, err := s.lock(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	defer st.mu.Unlock()
	return st.snapshot(s.clock.Now()), nil
}

// Refresh recomputes a day at the current time and persists it. It is the
// hook for window closures that happen without a meal being logged.
func (s *Service) Refresh(ctx context.Context, day string) (Snapshot, error) {
	st, err := s.lock(ctx, day)
	if err != nil {
		return Snapshot{}, err
	}
	defer st.mu.Unlock()
	if !st.rec.Planned() {
		return Snapshot{}, ErrNoPlan
	}
	now := s.clock.Now()
	st.refresh(now)
	snap := st.snapshot(now)
	return snap, s.persist(ctx, st.rec.Clone())
}

// DayKey formats t as a plan day key.
func DayKey(t time.Time) string {
	return t.Format(model.DayLayout)
}
