// Package main provides the CLI entrypoint for nutriplan.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/nutriplan/internal/api"
	"github.com/verte-zerg/nutriplan/internal/clock"
	"github.com/verte-zerg/nutriplan/internal/config"
	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/dayui"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/report"
	"github.com/verte-zerg/nutriplan/internal/scoring"
	"github.com/verte-zerg/nutriplan/internal/store"
	"github.com/verte-zerg/nutriplan/internal/window"
)

const (
	defaultAddr     = ":8080"
	shutdownTimeout = 5 * time.Second
)

var (
	envFile string

	planDate    string
	planPartial bool
	planWake    string
	planSleep   string
	planWorkout string
	planEnergy  string

	logDate     string
	logCalories float64
	logProtein  float64
	logCarbs    float64
	logFat      float64
	logAt       string
	logWindow   string
	logMicros   []string
	logHealth   int

	statusDate  string
	statusColor bool
	statusCurve bool

	scoreDate string

	impactDate     string
	impactContexts []string

	configShowWeights bool

	serveAddr string

	daysSince string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nutriplan",
		Short:         "Meal window planner and scorer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTodayCmd,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with NUTRIPLAN_* overrides (default: .env)")

	rootCmd.AddCommand(newTodayCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newLogCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newImpactCmd())
	rootCmd.AddCommand(newNutrientsCmd())
	rootCmd.AddCommand(newDaysCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// app bundles what every command needs after config has been applied.
type app struct {
	cfg   config.FileConfig
	store *store.Store
	svc   *day.Service
	log   *slog.Logger
}

func openApp() (*app, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	profile, err := fileCfg.BuildProfile()
	if err != nil {
		return nil, err
	}
	weights, err := fileCfg.BuildWeights()
	if err != nil {
		return nil, err
	}
	level, err := fileCfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	svc := day.NewService(profile,
		day.WithRepository(st),
		day.WithClock(clock.Real{}),
		day.WithLogger(logger),
		day.WithScorer(scoring.NewScorer(weights)),
	)
	return &app{cfg: fileCfg, store: st, svc: svc, log: logger}, nil
}

func (a *app) close() {
	if cerr := a.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func (a *app) build(ctx context.Context, key string, contexts []model.NutritionContext) (report.Report, error) {
	snap, err := a.svc.Snapshot(ctx, key)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(ctx, snap, report.Inputs{
		Scorer:   a.svc.Scorer(),
		Catalog:  a.svc.Catalog(),
		Sex:      a.svc.Profile().Sex,
		Contexts: contexts,
	})
}

// resolveDate parses a YYYY-MM-DD flag value; empty means today.
func resolveDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	parsed, err := time.ParseInLocation(model.DayLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date value (expected YYYY-MM-DD): %w", err)
	}
	return parsed, nil
}

func optionalTimeFlag(name, value string) (*model.TimeOfDay, error) {
	if value == "" {
		return nil, nil
	}
	t, err := model.ParseTimeOfDay(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &t, nil
}

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Open the day dashboard",
		Args:  cobra.NoArgs,
		RunE:  runTodayCmd,
	}
}

func runTodayCmd(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	load := func(ctx context.Context) (report.Report, error) {
		return a.build(ctx, day.DayKey(a.svc.Now()), nil)
	}
	program := tea.NewProgram(dayui.NewModel(load), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan meal windows for a day",
		Args:  cobra.NoArgs,
		RunE:  runPlanCmd,
	}
	cmd.Flags().StringVar(&planDate, "date", "", "day to plan (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&planPartial, "partial", false, "plan only the rest of today")
	cmd.Flags().StringVar(&planWake, "wake", "", "wake time override (HH:MM)")
	cmd.Flags().StringVar(&planSleep, "sleep", "", "sleep time override (HH:MM)")
	cmd.Flags().StringVar(&planWorkout, "workout", "", "workout time (HH:MM)")
	cmd.Flags().StringVar(&planEnergy, "energy", "normal", "energy level: low, normal or high")
	return cmd
}

func runPlanCmd(cmd *cobra.Command, _ []string) error {
	energy := model.Energy(strings.ToLower(planEnergy))
	switch energy {
	case model.EnergyLow, model.EnergyNormal, model.EnergyHigh:
	default:
		return fmt.Errorf("--energy must be low, normal or high")
	}
	if planPartial && (planDate != "" || planWorkout != "" || planWake != "" || planSleep != "") {
		return fmt.Errorf("--partial plans the rest of today and takes no other flags")
	}
	date, err := resolveDate(planDate)
	if err != nil {
		return err
	}
	wake, err := optionalTimeFlag("wake", planWake)
	if err != nil {
		return err
	}
	sleep, err := optionalTimeFlag("sleep", planSleep)
	if err != nil {
		return err
	}
	workout, err := optionalTimeFlag("workout", planWorkout)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	var snap day.Snapshot
	if planPartial {
		res, err := a.svc.PlanPartialDay(ctx)
		if err != nil {
			return fmt.Errorf("failed to plan: %w", err)
		}
		if res.Tomorrow {
			logErrf("Only %.1fh left today; planned tomorrow instead.\n", res.Plan.RemainingHours)
		} else {
			logErrf("%.1fh of %.1fh waking hours left; targets pro-rated to %d kcal.\n",
				res.Plan.RemainingHours, res.Plan.TotalWakingHours, res.Plan.ProRated.Calories)
		}
		snap = res.Snapshot
	} else {
		snap, err = a.svc.PlanFullDay(ctx, day.FullDayRequest{
			Day: date, Wake: wake, Sleep: sleep, Workout: workout, Energy: energy,
		})
		if err != nil {
			return fmt.Errorf("failed to plan: %w", err)
		}
	}
	rep, err := a.build(ctx, snap.Day, nil)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return report.RenderWindows(cmd.OutOrStdout(), rep.Windows, report.ShouldUseColor(cmd.OutOrStdout(), false))
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Log a meal",
		Args:  cobra.NoArgs,
		RunE:  runLogCmd,
	}
	cmd.Flags().StringVar(&logDate, "date", "", "plan day (YYYY-MM-DD, default: today)")
	cmd.Flags().Float64Var(&logCalories, "calories", 0, "calories (kcal)")
	cmd.Flags().Float64Var(&logProtein, "protein", 0, "protein (g)")
	cmd.Flags().Float64Var(&logCarbs, "carbs", 0, "carbs (g)")
	cmd.Flags().Float64Var(&logFat, "fat", 0, "fat (g)")
	cmd.Flags().StringVar(&logAt, "at", "", "meal time (HH:MM, default: now)")
	cmd.Flags().StringVar(&logWindow, "window", "", "window number from status, or window ID")
	cmd.Flags().StringArrayVar(&logMicros, "micro", nil, "micronutrient as name=amount (repeatable)")
	cmd.Flags().IntVar(&logHealth, "health", -1, "meal health score (0-100)")
	return cmd
}

func runLogCmd(cmd *cobra.Command, _ []string) error {
	if logCalories < 0 || logProtein < 0 || logCarbs < 0 || logFat < 0 {
		return fmt.Errorf("macros must not be negative")
	}
	if cmd.Flags().Changed("health") && (logHealth < 0 || logHealth > 100) {
		return fmt.Errorf("--health must be between 0 and 100")
	}
	date, err := resolveDate(logDate)
	if err != nil {
		return err
	}
	key := day.DayKey(date)
	micros, err := parseMicros(logMicros)
	if err != nil {
		return err
	}
	meal := model.LoggedMeal{
		Calories:       logCalories,
		Protein:        logProtein,
		Carbs:          logCarbs,
		Fat:            logFat,
		Micronutrients: micros,
	}
	if cmd.Flags().Changed("health") {
		meal.Health = &model.HealthScore{Score: logHealth}
	}
	switch {
	case logAt != "":
		at, err := model.ParseTimeOfDay(logAt)
		if err != nil {
			return fmt.Errorf("invalid --at value: %w", err)
		}
		meal.Timestamp = at.On(date)
	case logDate != "" && key != day.DayKey(time.Now()):
		return fmt.Errorf("--at is required when logging for another day")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	if logWindow != "" {
		snap, err := a.svc.Snapshot(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load day: %w", err)
		}
		id, err := resolveWindow(snap.Windows, logWindow)
		if err != nil {
			return err
		}
		meal.WindowID = id
	}

	snap, err := a.svc.LogMeal(ctx, key, meal)
	var perr *day.PersistError
	switch {
	case errors.Is(err, day.ErrNoPlan):
		return fmt.Errorf("no plan for %s; run: nutriplan plan --date %s", key, key)
	case errors.As(err, &perr):
		return fmt.Errorf("meal could not be saved: %w", err)
	case err != nil:
		return fmt.Errorf("failed to log meal: %w", err)
	}
	rep, err := a.build(ctx, snap.Day, nil)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	return report.RenderWindows(cmd.OutOrStdout(), rep.Windows, report.ShouldUseColor(cmd.OutOrStdout(), false))
}

// resolveWindow accepts a 1-based position in start order or a window ID.
func resolveWindow(windows []model.MealWindow, ref string) (string, error) {
	ordered := window.Ordered(windows)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(ordered) {
			return "", fmt.Errorf("--window must be between 1 and %d", len(ordered))
		}
		return ordered[n-1].ID, nil
	}
	for _, w := range ordered {
		if w.ID == ref {
			return w.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", day.ErrUnknownWindow, ref)
}

func parseMicros(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(values))
	for _, v := range values {
		name, amount, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --micro %q (expected name=amount)", v)
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid --micro amount %q", v)
		}
		out[name] += n
	}
	return out, nil
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the windows of a day",
		Args:  cobra.NoArgs,
		RunE:  runStatusCmd,
	}
	cmd.Flags().StringVar(&statusDate, "date", "", "day (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&statusColor, "color", false, "force colored output")
	cmd.Flags().BoolVar(&statusCurve, "curve", false, "also plot planned against eaten calories")
	return cmd
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	date, err := resolveDate(statusDate)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	rep, err := a.build(cmd.Context(), day.DayKey(date), nil)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	useColor := report.ShouldUseColor(out, statusColor)
	if err := report.RenderWindows(out, rep.Windows, useColor); err != nil {
		return err
	}
	if !statusCurve || len(rep.Windows) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	return report.RenderIntakeCurve(out, rep.Snapshot, report.TerminalWidth(), 0, useColor)
}

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Show window and daily scores",
		Args:  cobra.NoArgs,
		RunE:  runScoreCmd,
	}
	cmd.Flags().StringVar(&scoreDate, "date", "", "day (YYYY-MM-DD, default: today)")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	date, err := resolveDate(scoreDate)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	key := day.DayKey(date)
	rep, err := a.build(cmd.Context(), key, nil)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if len(rep.Windows) == 0 {
		return fmt.Errorf("no plan for %s", key)
	}
	out := cmd.OutOrStdout()
	if err := report.RenderDaily(out, rep.Daily); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderWindowScores(out, rep.Windows); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newImpactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "impact",
		Short: "Show micronutrient impact by health category",
		Args:  cobra.NoArgs,
		RunE:  runImpactCmd,
	}
	cmd.Flags().StringVar(&impactDate, "date", "", "day (YYYY-MM-DD, default: today)")
	cmd.Flags().StringArrayVar(&impactContexts, "context", nil,
		"context tag: post-workout[:intensity[:minutes]], pre-sleep[:hours], morning, fasting, stressed, illness")
	return cmd
}

func runImpactCmd(cmd *cobra.Command, _ []string) error {
	date, err := resolveDate(impactDate)
	if err != nil {
		return err
	}
	contexts, err := model.ParseContexts(impactContexts)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	rep, err := a.build(cmd.Context(), day.DayKey(date), contexts)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if len(rep.Impact.Unmatched) > 0 {
		a.log.Warn("unmatched nutrients", "names", rep.Impact.Unmatched)
	}
	return report.RenderImpact(cmd.OutOrStdout(), rep.Impact, report.TerminalWidth())
}

func newNutrientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nutrients [name]",
		Short: "Look up a nutrient, or list the catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runNutrientsCmd,
	}
}

func runNutrientsCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	catalog := a.svc.Catalog()
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		for _, info := range catalog.All() {
			if _, err := fmt.Fprintln(out, info.Name); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		return nil
	}
	info, ok := catalog.Lookup(args[0])
	if !ok {
		return fmt.Errorf("unknown nutrient %q", args[0])
	}
	return report.RenderNutrient(out, info)
}

func newDaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "days",
		Short: "List planned days",
		Args:  cobra.NoArgs,
		RunE:  runDaysCmd,
	}
	cmd.Flags().StringVar(&daysSince, "since", "", "start date (YYYY-MM-DD)")
	return cmd
}

func runDaysCmd(cmd *cobra.Command, _ []string) error {
	if daysSince != "" {
		if _, err := time.ParseInLocation(model.DayLayout, daysSince, time.Local); err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	days, err := a.store.ListDays(cmd.Context(), daysSince)
	if err != nil {
		return fmt.Errorf("failed to list days: %w", err)
	}
	return report.RenderDays(cmd.OutOrStdout(), days)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().BoolVar(&configShowWeights, "show-weights", false, "print the active scoring weights instead of opening the editor")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	path := config.DefaultConfigPath()
	if configShowWeights {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		weights, err := fileCfg.BuildWeights()
		if err != nil {
			return err
		}
		return report.RenderWeights(cmd.OutOrStdout(), weights)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	edit := exec.Command(parts[0], append(parts[1:], path)...)
	edit.Stdin = os.Stdin
	edit.Stdout = os.Stdout
	edit.Stderr = os.Stderr
	if err := edit.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	applyStringConfig(cmd, "addr", &serveAddr, a.cfg.Server.Addr)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           api.NewRouter(a.svc, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", serveAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	d := model.DefaultTargets
	return fmt.Sprintf(`# nutriplan configuration
# Uncomment a value to enable it. CLI flags override config values.

[profile]
# calories = %d           # Daily calorie target (kcal)
# protein = %d             # Daily protein target (g)
# carbs = %d               # Daily carb target (g)
# fat = %d                  # Daily fat target (g)
# wake = %q            # Wake time (HH:MM)
# sleep = %q           # Sleep time (HH:MM)
# sex = "female"            # male or female; selects RDA values
# windows = %d               # Meal windows per day (3-6)

# Scoring weights per window purpose, in percent. Each purpose must sum to 100.
# [scoring.weights.recovery]
# calories = 20
# protein = 40
# carbs = 20
# fat = 20

[server]
# addr = %q           # HTTP listen address for "nutriplan serve"

[log]
# level = "info"            # debug, info, warn or error
`,
		d.Calories,
		d.Protein,
		d.Carbs,
		d.Fat,
		model.DefaultWake.String(),
		model.DefaultSleep.String(),
		model.DefaultWindowsPerDay,
		defaultAddr,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
