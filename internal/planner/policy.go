package planner

import (
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// Slot is a laid-out window interval before purposes are assigned.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Assignment is the purpose and flexibility chosen for a slot.
type Assignment struct {
	Purpose     model.Purpose
	Flexibility model.Flexibility
}

// PolicyInput is what a Policy sees when choosing purposes.
type PolicyInput struct {
	Slots   []Slot
	Workout *time.Time
	Energy  model.Energy
}

// Policy chooses one assignment per slot for a full-day plan.
type Policy interface {
	Assign(in PolicyInput) []Assignment
}

// DefaultPolicy opens with metabolic-boost, closes with sleep-optimized and
// fills the middle with sustained-energy, alternating recovery from five
// windows up. A workout turns the surrounding windows into pre/post-workout.
type DefaultPolicy struct{}

// Assign implements Policy.
func (DefaultPolicy) Assign(in PolicyInput) []Assignment {
	n := len(in.Slots)
	out := make([]Assignment, n)
	if n == 0 {
		return out
	}
	for i := range out {
		p := model.PurposeSustainedEnergy
		switch {
		case i == 0:
			p = model.PurposeMetabolicBoost
		case i == n-1:
			p = model.PurposeSleepOptimized
		case n >= 5 && i%2 == 0:
			p = model.PurposeRecovery
		}
		out[i].Purpose = p
	}
	if in.Workout != nil {
		pre, post := -1, -1
		for i, s := range in.Slots {
			if !s.End.After(*in.Workout) {
				pre = i
			}
			if post < 0 && !s.Start.Before(*in.Workout) {
				post = i
			}
		}
		if pre >= 0 {
			out[pre].Purpose = model.PurposePreWorkout
		}
		if post >= 0 {
			out[post].Purpose = model.PurposePostWorkout
		}
	}
	if in.Energy == model.EnergyLow && out[0].Purpose == model.PurposeMetabolicBoost {
		out[0].Purpose = model.PurposeSustainedEnergy
	}
	for i := range out {
		out[i].Flexibility = flexibilityFor(out[i].Purpose, in.Energy)
	}
	return out
}

func flexibilityFor(p model.Purpose, energy model.Energy) model.Flexibility {
	switch {
	case p == model.PurposePreWorkout || p == model.PurposePostWorkout:
		return model.FlexStrict
	case energy == model.EnergyLow:
		return model.FlexFlexible
	default:
		return model.FlexModerate
	}
}

// partialPurposes selects purposes for a partial-day plan by window count and
// the hour of day at generation time.
func partialPurposes(n, hour int) []model.Purpose {
	switch n {
	case 3:
		if hour < 12 {
			return []model.Purpose{model.PurposeSustainedEnergy, model.PurposeMetabolicBoost, model.PurposeRecovery}
		}
		return []model.Purpose{model.PurposeMetabolicBoost, model.PurposeSustainedEnergy, model.PurposeSleepOptimized}
	case 2:
		if hour < 16 {
			return []model.Purpose{model.PurposeSustainedEnergy, model.PurposeRecovery}
		}
		return []model.Purpose{model.PurposeSustainedEnergy, model.PurposeSleepOptimized}
	case 1:
		if hour < 18 {
			return []model.Purpose{model.PurposeSustainedEnergy}
		}
		return []model.Purpose{model.PurposeSleepOptimized}
	default:
		return nil
	}
}
