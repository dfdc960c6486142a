package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay reports a malformed HH:MM value.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, mo, d := day.Date()
	return time.Date(y, mo, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Hours returns the time of day as fractional hours since midnight.
func (t TimeOfDay) Hours() float64 {
	return float64(t.Hour) + float64(t.Minute)/60
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Sex selects the RDA column.
type Sex string

// Sex values. SexUnspecified averages both columns.
const (
	SexUnspecified Sex = ""
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
)

// Energy is the coarse check-in energy signal.
type Energy string

// Energy levels.
const (
	EnergyLow    Energy = "low"
	EnergyNormal Energy = "normal"
	EnergyHigh   Energy = "high"
)

// Profile defaults used when profile fields are missing or invalid.
var (
	DefaultWake          = TimeOfDay{Hour: 7}
	DefaultSleep         = TimeOfDay{Hour: 23}
	DefaultTargets       = Targets{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	DefaultWindowsPerDay = 4
)

// Profile holds the user's daily targets and schedule.
type Profile struct {
	Targets       Targets
	Wake          TimeOfDay
	Sleep         TimeOfDay
	Sex           Sex
	Goal          string
	WindowsPerDay int
}

// Normalized returns a copy with invalid fields replaced by defaults.
func (p Profile) Normalized() Profile {
	if p.Targets.Calories <= 0 {
		p.Targets = DefaultTargets
	}
	if p.Wake == p.Sleep {
		p.Wake, p.Sleep = DefaultWake, DefaultSleep
	}
	if p.WindowsPerDay < 3 || p.WindowsPerDay > 6 {
		p.WindowsPerDay = DefaultWindowsPerDay
	}
	return p
}

// CheckIn is the daily check-in consumed by the planner.
type CheckIn struct {
	Day        time.Time
	Wake       *TimeOfDay
	Sleep      *TimeOfDay
	Workout    *TimeOfDay
	Energy     Energy
	QuickMeals []LoggedMeal
}
