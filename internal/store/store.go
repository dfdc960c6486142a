// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrMissingIdentity marks a persisted row without an ID or day.
var ErrMissingIdentity = errors.New("row missing identity")

// Store wraps SQLite access for day plans.
type Store struct {
	db *sql.DB
}

// LoadResult is a loaded day. Rows that fail to decode are skipped and counted
// in Rejected.
type LoadResult struct {
	Record   model.DayRecord
	Found    bool
	Rejected int
}

// DaySummary describes a stored day without its rows.
type DaySummary struct {
	Day        string
	Generation int64
	PlannedAt  time.Time
	Windows    int
	Meals      int
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS days (
			day TEXT PRIMARY KEY,
			generation INTEGER NOT NULL,
			planned_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS windows (
			id TEXT NOT NULL,
			day TEXT NOT NULL,
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			purpose TEXT NOT NULL,
			flexibility TEXT NOT NULL,
			target_calories INTEGER NOT NULL,
			target_protein INTEGER NOT NULL,
			target_carbs INTEGER NOT NULL,
			target_fat INTEGER NOT NULL,
			adjusted_calories INTEGER,
			adjusted_protein INTEGER,
			adjusted_carbs INTEGER,
			adjusted_fat INTEGER,
			reason_kind TEXT NOT NULL DEFAULT '',
			reason_percent REAL NOT NULL DEFAULT 0,
			consumed_calories REAL NOT NULL DEFAULT 0,
			consumed_protein REAL NOT NULL DEFAULT 0,
			consumed_carbs REAL NOT NULL DEFAULT 0,
			consumed_fat REAL NOT NULL DEFAULT 0,
			fasted INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS meals (
			id TEXT NOT NULL,
			day TEXT NOT NULL,
			window_id TEXT NOT NULL DEFAULT '',
			eaten_at TEXT NOT NULL,
			calories REAL NOT NULL,
			protein REAL NOT NULL,
			carbs REAL NOT NULL,
			fat REAL NOT NULL,
			micronutrients TEXT NOT NULL DEFAULT '',
			health TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_windows_day ON windows(day);`,
		`CREATE INDEX IF NOT EXISTS idx_meals_day ON meals(day);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDay replaces the stored aggregate for rec.Day.
func (s *Store) SaveDay(ctx context.Context, rec model.DayRecord) (err error) {
	if rec.Day == "" {
		return ErrMissingIdentity
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO days (day, generation, planned_at) VALUES (?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET generation = excluded.generation, planned_at = excluded.planned_at`,
		rec.Day, rec.Generation, rec.PlannedAt.Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	for _, table := range []string{"windows", "meals"} {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE day = ?`, table), rec.Day); err != nil {
			return err
		}
	}

	if err = insertWindows(ctx, tx, rec.Day, rec.Windows); err != nil {
		return err
	}
	if err = insertMeals(ctx, tx, rec.Day, rec.Meals); err != nil {
		return err
	}
	return tx.Commit()
}

func insertWindows(ctx context.Context, tx *sql.Tx, day string, windows []model.MealWindow) error {
	if len(windows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO windows (id, day, start_at, end_at, purpose, flexibility,
			target_calories, target_protein, target_carbs, target_fat,
			adjusted_calories, adjusted_protein, adjusted_carbs, adjusted_fat,
			reason_kind, reason_percent,
			consumed_calories, consumed_protein, consumed_carbs, consumed_fat, fasted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, w := range windows {
		if w.ID == "" {
			return fmt.Errorf("failed to save window: %w", ErrMissingIdentity)
		}
		var adj [4]sql.NullInt64
		if w.Adjusted != nil {
			for i, f := range model.Fields {
				adj[i] = sql.NullInt64{Int64: int64(w.Adjusted.Field(f)), Valid: true}
			}
		}
		var kind model.ReasonKind
		var percent float64
		if w.Reason != nil {
			kind = w.Reason.Kind()
			percent, _ = model.ReasonPercent(w.Reason)
		}
		if _, err := stmt.ExecContext(ctx,
			w.ID, day,
			w.Start.Format(time.RFC3339Nano), w.End.Format(time.RFC3339Nano),
			string(w.Purpose), string(w.Flexibility),
			w.Target.Calories, w.Target.Protein, w.Target.Carbs, w.Target.Fat,
			adj[0], adj[1], adj[2], adj[3],
			string(kind), percent,
			w.Consumed.Calories, w.Consumed.Protein, w.Consumed.Carbs, w.Consumed.Fat,
			boolInt(w.Fasted),
		); err != nil {
			return err
		}
	}
	return nil
}

func insertMeals(ctx context.Context, tx *sql.Tx, day string, meals []model.LoggedMeal) error {
	if len(meals) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO meals (id, day, window_id, eaten_at, calories, protein, carbs, fat, micronutrients, health)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, m := range meals {
		if m.ID == "" {
			return fmt.Errorf("failed to save meal: %w", ErrMissingIdentity)
		}
		micros, err := encodeJSON(m.Micronutrients, len(m.Micronutrients) == 0)
		if err != nil {
			return err
		}
		health, err := encodeJSON(m.Health, m.Health == nil)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, day, m.WindowID, m.Timestamp.Format(time.RFC3339Nano),
			m.Calories, m.Protein, m.Carbs, m.Fat, micros, health,
		); err != nil {
			return err
		}
	}
	return nil
}

// LoadDay reads the stored aggregate for day.
func (s *Store) LoadDay(ctx context.Context, day string) (LoadResult, error) {
	var res LoadResult
	var plannedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT generation, planned_at FROM days WHERE day = ?`, day,
	).Scan(&res.Record.Generation, &plannedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Found = true
	res.Record.Day = day
	if res.Record.PlannedAt, err = time.Parse(time.RFC3339Nano, plannedAt); err != nil {
		return res, err
	}

	windows, rejected, err := s.loadWindows(ctx, day)
	if err != nil {
		return res, err
	}
	res.Record.Windows = windows
	res.Rejected += rejected

	meals, rejected, err := s.loadMeals(ctx, day)
	if err != nil {
		return res, err
	}
	res.Record.Meals = meals
	res.Rejected += rejected
	return res, nil
}

func (s *Store) loadWindows(ctx context.Context, day string) ([]model.MealWindow, int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, day, start_at, end_at, purpose, flexibility,
			target_calories, target_protein, target_carbs, target_fat,
			adjusted_calories, adjusted_protein, adjusted_carbs, adjusted_fat,
			reason_kind, reason_percent,
			consumed_calories, consumed_protein, consumed_carbs, consumed_fat, fasted
		 FROM windows WHERE day = ? ORDER BY start_at ASC`, day)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.MealWindow
	rejected := 0
	for rows.Next() {
		var (
			w             model.MealWindow
			start, end    string
			purpose, flex string
			adj           [4]sql.NullInt64
			kind          string
			percent       float64
			fasted        int
		)
		if err := rows.Scan(&w.ID, &w.Day, &start, &end, &purpose, &flex,
			&w.Target.Calories, &w.Target.Protein, &w.Target.Carbs, &w.Target.Fat,
			&adj[0], &adj[1], &adj[2], &adj[3],
			&kind, &percent,
			&w.Consumed.Calories, &w.Consumed.Protein, &w.Consumed.Carbs, &w.Consumed.Fat, &fasted,
		); err != nil {
			return nil, 0, err
		}
		if err := decodeWindow(&w, start, end, purpose, flex, adj, kind, percent); err != nil {
			rejected++
			continue
		}
		w.Fasted = fasted != 0
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, rejected, nil
}

func decodeWindow(w *model.MealWindow, start, end, purpose, flex string, adj [4]sql.NullInt64, kind string, percent float64) error {
	if w.ID == "" || w.Day == "" {
		return ErrMissingIdentity
	}
	var err error
	if w.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
		return err
	}
	if w.End, err = time.Parse(time.RFC3339Nano, end); err != nil {
		return err
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window %s has start >= end", w.ID)
	}
	w.Purpose = model.Purpose(purpose)
	if !w.Purpose.Valid() {
		return fmt.Errorf("window %s has unknown purpose %q", w.ID, purpose)
	}
	w.Flexibility = model.Flexibility(flex)
	if adj[0].Valid {
		w.Adjusted = &model.Targets{
			Calories: int(adj[0].Int64),
			Protein:  int(adj[1].Int64),
			Carbs:    int(adj[2].Int64),
			Fat:      int(adj[3].Int64),
		}
	}
	w.Reason, err = model.NewReason(model.ReasonKind(kind), percent)
	return err
}

func (s *Store) loadMeals(ctx context.Context, day string) ([]model.LoggedMeal, int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, window_id, eaten_at, calories, protein, carbs, fat, micronutrients, health
		 FROM meals WHERE day = ? ORDER BY eaten_at ASC`, day)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.LoggedMeal
	rejected := 0
	for rows.Next() {
		var m model.LoggedMeal
		var eatenAt, micros, health string
		if err := rows.Scan(&m.ID, &m.WindowID, &eatenAt, &m.Calories, &m.Protein, &m.Carbs, &m.Fat, &micros, &health); err != nil {
			return nil, 0, err
		}
		if m.ID == "" {
			rejected++
			continue
		}
		parsed, err := time.Parse(time.RFC3339Nano, eatenAt)
		if err != nil {
			rejected++
			continue
		}
		m.Timestamp = parsed
		if micros != "" {
			if err := json.Unmarshal([]byte(micros), &m.Micronutrients); err != nil {
				rejected++
				continue
			}
		}
		if health != "" {
			var hs model.HealthScore
			if err := json.Unmarshal([]byte(health), &hs); err != nil {
				rejected++
				continue
			}
			m.Health = &hs
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, rejected, nil
}

// ListDays returns stored days ordered by day, optionally from since onwards.
func (s *Store) ListDays(ctx context.Context, since string) ([]DaySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.day, d.generation, d.planned_at,
			(SELECT COUNT(*) FROM windows w WHERE w.day = d.day),
			(SELECT COUNT(*) FROM meals m WHERE m.day = d.day)
		 FROM days d
		 WHERE (? = '' OR d.day >= ?)
		 ORDER BY d.day ASC`, since, since)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []DaySummary
	for rows.Next() {
		var sum DaySummary
		var plannedAt string
		if err := rows.Scan(&sum.Day, &sum.Generation, &plannedAt, &sum.Windows, &sum.Meals); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, plannedAt)
		if err != nil {
			return nil, err
		}
		sum.PlannedAt = parsed
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeJSON(v any, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
