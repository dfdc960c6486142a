package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Intensity grades a workout.
type Intensity string

// Workout intensities.
const (
	IntensityLight    Intensity = "light"
	IntensityModerate Intensity = "moderate"
	IntensityIntense  Intensity = "intense"
)

// ContextKind identifies a NutritionContext variant. The numeric order is the
// order in which penalty adjustments are applied.
type ContextKind int

// Context kinds in application order.
const (
	ContextPostWorkout ContextKind = iota
	ContextPreSleep
	ContextMorning
	ContextFasting
	ContextStressed
	ContextIllness
)

func (k ContextKind) String() string {
	switch k {
	case ContextPostWorkout:
		return "post-workout"
	case ContextPreSleep:
		return "pre-sleep"
	case ContextMorning:
		return "morning"
	case ContextFasting:
		return "fasting"
	case ContextStressed:
		return "stressed"
	case ContextIllness:
		return "illness"
	default:
		return "unknown"
	}
}

// NutritionContext is a situational tag that adjusts anti-nutrient penalties.
type NutritionContext interface {
	Kind() ContextKind
}

// PostWorkout is active after a workout.
type PostWorkout struct {
	Intensity Intensity
	Elapsed   time.Duration
}

// PreSleep is active before sleep.
type PreSleep struct {
	HoursUntilSleep float64
}

// Morning is active in the morning.
type Morning struct{}

// Fasting is active during a fast.
type Fasting struct{}

// Stressed is active under stress.
type Stressed struct{}

// Illness is active while ill.
type Illness struct{}

// Kind implements NutritionContext.
func (PostWorkout) Kind() ContextKind { return ContextPostWorkout }

// Kind implements NutritionContext.
func (PreSleep) Kind() ContextKind { return ContextPreSleep }

// Kind implements NutritionContext.
func (Morning) Kind() ContextKind { return ContextMorning }

// Kind implements NutritionContext.
func (Fasting) Kind() ContextKind { return ContextFasting }

// Kind implements NutritionContext.
func (Stressed) Kind() ContextKind { return ContextStressed }

// Kind implements NutritionContext.
func (Illness) Kind() ContextKind { return ContextIllness }

// ErrInvalidContext reports a malformed context tag.
var ErrInvalidContext = errors.New("invalid nutrition context")

// ParseContext parses a context tag. Post-workout accepts an optional
// intensity and elapsed minutes ("post-workout:intense:30"); pre-sleep accepts
// optional hours until sleep ("pre-sleep:2").
func ParseContext(s string) (NutritionContext, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	args := parts[1:]
	switch parts[0] {
	case "post-workout":
		if len(args) > 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidContext, s)
		}
		pw := PostWorkout{Intensity: IntensityModerate}
		if len(args) > 0 {
			switch Intensity(args[0]) {
			case IntensityLight, IntensityModerate, IntensityIntense:
				pw.Intensity = Intensity(args[0])
			default:
				return nil, fmt.Errorf("%w: unknown intensity %q", ErrInvalidContext, args[0])
			}
		}
		if len(args) > 1 {
			mins, err := strconv.Atoi(args[1])
			if err != nil || mins < 0 {
				return nil, fmt.Errorf("%w: bad minutes %q", ErrInvalidContext, args[1])
			}
			pw.Elapsed = time.Duration(mins) * time.Minute
		}
		return pw, nil
	case "pre-sleep":
		if len(args) > 1 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidContext, s)
		}
		ps := PreSleep{HoursUntilSleep: 1}
		if len(args) == 1 {
			h, err := strconv.ParseFloat(args[0], 64)
			if err != nil || h < 0 {
				return nil, fmt.Errorf("%w: bad hours %q", ErrInvalidContext, args[0])
			}
			ps.HoursUntilSleep = h
		}
		return ps, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContext, s)
	}
	switch parts[0] {
	case "morning":
		return Morning{}, nil
	case "fasting":
		return Fasting{}, nil
	case "stressed":
		return Stressed{}, nil
	case "illness":
		return Illness{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidContext, s)
}

// ParseContexts parses each tag in order.
func ParseContexts(tags []string) ([]NutritionContext, error) {
	out := make([]NutritionContext, 0, len(tags))
	for _, tag := range tags {
		c, err := ParseContext(tag)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
