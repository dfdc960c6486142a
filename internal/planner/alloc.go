package planner

import "github.com/verte-zerg/nutriplan/internal/model"

const (
	kcalPerGramProtein = 4.0
	kcalPerGramCarbs   = 4.0
	kcalPerGramFat     = 9.0
)

// CalorieWeight returns the relative calorie share of a purpose.
func CalorieWeight(p model.Purpose) float64 {
	switch p {
	case model.PurposeSustainedEnergy:
		return 0.35
	case model.PurposeMetabolicBoost:
		return 0.30
	case model.PurposeRecovery:
		return 0.25
	case model.PurposeSleepOptimized:
		return 0.20
	default:
		return 0.30
	}
}

// allocate splits daily targets across windows. Calories follow the purpose
// calorie weights; each macro column starts from the purpose ratio and is then
// scaled so that the column sums to the daily target exactly.
func allocate(total model.Targets, purposes []model.Purpose) []model.Targets {
	n := len(purposes)
	if n == 0 {
		return nil
	}
	weights := make([]float64, n)
	var weightSum float64
	for i, p := range purposes {
		weights[i] = CalorieWeight(p)
		weightSum += weights[i]
	}
	calShares := make([]float64, n)
	for i := range purposes {
		calShares[i] = float64(total.Calories) * weights[i] / weightSum
	}
	cals := model.RoundPreservingSum(calShares)

	protein := make([]float64, n)
	carbs := make([]float64, n)
	fat := make([]float64, n)
	for i, p := range purposes {
		r := p.Ratio()
		protein[i] = calShares[i] * r.Protein / kcalPerGramProtein
		carbs[i] = calShares[i] * r.Carbs / kcalPerGramCarbs
		fat[i] = calShares[i] * r.Fat / kcalPerGramFat
	}
	proteinG := model.Apportion(total.Protein, protein)
	carbsG := model.Apportion(total.Carbs, carbs)
	fatG := model.Apportion(total.Fat, fat)

	out := make([]model.Targets, n)
	for i := range purposes {
		out[i] = model.Targets{
			Calories: cals[i],
			Protein:  proteinG[i],
			Carbs:    carbsG[i],
			Fat:      fatG[i],
		}
	}
	return out
}

// scaleTargets multiplies each field by factor and rounds.
func scaleTargets(t model.Targets, factor float64) model.Targets {
	return model.Targets{
		Calories: model.RoundHalfAway(float64(t.Calories) * factor),
		Protein:  model.RoundHalfAway(float64(t.Protein) * factor),
		Carbs:    model.RoundHalfAway(float64(t.Carbs) * factor),
		Fat:      model.RoundHalfAway(float64(t.Fat) * factor),
	}
}
