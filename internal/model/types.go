// Package model defines shared data structures.
package model

import (
	"math"
	"time"
)

// DayLayout is the key format for a plan day.
const DayLayout = "2006-01-02"

// Purpose is the semantic role of a meal window.
type Purpose string

// Window purposes.
const (
	PurposePreWorkout      Purpose = "pre-workout"
	PurposePostWorkout     Purpose = "post-workout"
	PurposeSustainedEnergy Purpose = "sustained-energy"
	PurposeRecovery        Purpose = "recovery"
	PurposeMetabolicBoost  Purpose = "metabolic-boost"
	PurposeSleepOptimized  Purpose = "sleep-optimized"
)

// Purposes lists every purpose in a stable order.
var Purposes = []Purpose{
	PurposePreWorkout,
	PurposePostWorkout,
	PurposeSustainedEnergy,
	PurposeRecovery,
	PurposeMetabolicBoost,
	PurposeSleepOptimized,
}

// MacroRatio is a protein/carb/fat split of calories. Fields sum to 1.
type MacroRatio struct {
	Protein float64
	Carbs   float64
	Fat     float64
}

// Ratio returns the fixed macro ratio for the purpose.
func (p Purpose) Ratio() MacroRatio {
	switch p {
	case PurposePreWorkout:
		return MacroRatio{Protein: 0.20, Carbs: 0.60, Fat: 0.20}
	case PurposePostWorkout:
		return MacroRatio{Protein: 0.40, Carbs: 0.45, Fat: 0.15}
	case PurposeRecovery:
		return MacroRatio{Protein: 0.35, Carbs: 0.40, Fat: 0.25}
	case PurposeMetabolicBoost:
		return MacroRatio{Protein: 0.30, Carbs: 0.40, Fat: 0.30}
	case PurposeSleepOptimized:
		return MacroRatio{Protein: 0.30, Carbs: 0.25, Fat: 0.45}
	default:
		return MacroRatio{Protein: 0.25, Carbs: 0.45, Fat: 0.30}
	}
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	for _, known := range Purposes {
		if p == known {
			return true
		}
	}
	return false
}

// Flexibility controls the adherence tolerance band of a window.
type Flexibility string

// Flexibility levels.
const (
	FlexStrict   Flexibility = "strict"
	FlexModerate Flexibility = "moderate"
	FlexFlexible Flexibility = "flexible"
)

// Tolerance returns the fractional band around the target.
func (f Flexibility) Tolerance() float64 {
	switch f {
	case FlexStrict:
		return 0.10
	case FlexFlexible:
		return 0.35
	default:
		return 0.20
	}
}

// Targets holds rounded calorie and macro targets (kcal, grams).
type Targets struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Field returns the value for a macro field.
func (t Targets) Field(f Field) int {
	switch f {
	case FieldProtein:
		return t.Protein
	case FieldCarbs:
		return t.Carbs
	case FieldFat:
		return t.Fat
	default:
		return t.Calories
	}
}

// With returns a copy with field f set to v.
func (t Targets) With(f Field, v int) Targets {
	switch f {
	case FieldProtein:
		t.Protein = v
	case FieldCarbs:
		t.Carbs = v
	case FieldFat:
		t.Fat = v
	default:
		t.Calories = v
	}
	return t
}

// Add returns t + o.
func (t Targets) Add(o Targets) Targets {
	return Targets{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carbs:    t.Carbs + o.Carbs,
		Fat:      t.Fat + o.Fat,
	}
}

// Intake holds consumed totals.
type Intake struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Field returns the value for a macro field.
func (in Intake) Field(f Field) float64 {
	switch f {
	case FieldProtein:
		return in.Protein
	case FieldCarbs:
		return in.Carbs
	case FieldFat:
		return in.Fat
	default:
		return in.Calories
	}
}

// Add returns in + o.
func (in Intake) Add(o Intake) Intake {
	return Intake{
		Calories: in.Calories + o.Calories,
		Protein:  in.Protein + o.Protein,
		Carbs:    in.Carbs + o.Carbs,
		Fat:      in.Fat + o.Fat,
	}
}

// Field names one of the four tracked quantities.
type Field int

// Tracked fields.
const (
	FieldCalories Field = iota
	FieldProtein
	FieldCarbs
	FieldFat
)

// Fields lists the tracked fields in display order.
var Fields = []Field{FieldCalories, FieldProtein, FieldCarbs, FieldFat}

func (f Field) String() string {
	switch f {
	case FieldProtein:
		return "protein"
	case FieldCarbs:
		return "carbs"
	case FieldFat:
		return "fat"
	default:
		return "calories"
	}
}

// MealWindow is a time-bounded slot with calorie and macro targets.
type MealWindow struct {
	ID          string
	Day         string
	Start       time.Time
	End         time.Time
	Purpose     Purpose
	Flexibility Flexibility
	Target      Targets
	// Adjusted overrides Target after redistribution.
	Adjusted *Targets
	Reason   RedistributionReason
	Consumed Intake
	Fasted   bool
}

// Effective returns the adjusted targets when present, else the original targets.
func (w MealWindow) Effective() Targets {
	if w.Adjusted != nil {
		return *w.Adjusted
	}
	return w.Target
}

// Duration returns End - Start.
func (w MealWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t lies within [Start, End].
func (w MealWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Clone returns a deep copy.
func (w MealWindow) Clone() MealWindow {
	if w.Adjusted != nil {
		adj := *w.Adjusted
		w.Adjusted = &adj
	}
	return w
}

// LoggedMeal is a consumer-supplied meal record.
type LoggedMeal struct {
	ID             string
	Timestamp      time.Time
	Calories       float64
	Protein        float64
	Carbs          float64
	Fat            float64
	Micronutrients map[string]float64
	// WindowID is empty when the meal is not assigned to a window.
	WindowID string
	Health   *HealthScore
}

// Intake returns the meal's macros as an Intake.
func (m LoggedMeal) Intake() Intake {
	return Intake{Calories: m.Calories, Protein: m.Protein, Carbs: m.Carbs, Fat: m.Fat}
}

// Clone returns a deep copy.
func (m LoggedMeal) Clone() LoggedMeal {
	if m.Micronutrients != nil {
		micros := make(map[string]float64, len(m.Micronutrients))
		for k, v := range m.Micronutrients {
			micros[k] = v
		}
		m.Micronutrients = micros
	}
	if m.Health != nil {
		hs := m.Health.Clone()
		m.Health = &hs
	}
	return m
}

// RoundHalfAway rounds to the nearest integer, halves away from zero.
func RoundHalfAway(v float64) int {
	return int(math.Round(v))
}
