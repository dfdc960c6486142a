package scoring

import (
	"math"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// Scorer computes window and daily scores with a weight table.
type Scorer struct {
	weights WeightTable
}

// NewScorer returns a Scorer. A nil table uses DefaultWeights.
func NewScorer(weights WeightTable) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Weights returns the active weight table.
func (s *Scorer) Weights() WeightTable {
	return s.weights
}

// SubScore rates actual against target on a 0-100 tolerance curve. The score
// is 100 at an exact match and reaches 0 at twice the flexibility band.
func SubScore(actual float64, target int, flex model.Flexibility) int {
	if target <= 0 {
		if actual == 0 {
			return 100
		}
		return 0
	}
	d := math.Abs(actual-float64(target)) / float64(target)
	band := flex.Tolerance()
	return model.RoundHalfAway(100 * math.Max(0, 1-d/(2*band)))
}

// Window scores consumption of w against its effective targets.
func (s *Scorer) Window(w model.MealWindow) model.WindowScore {
	eff := w.Effective()
	weights := s.weights.For(w.Purpose)
	out := model.WindowScore{
		WindowID: w.ID,
		Details:  make(map[model.Field]model.MacroDetail, len(model.Fields)),
	}
	var total float64
	sub := make(map[model.Field]int, len(model.Fields))
	for _, f := range model.Fields {
		actual := w.Consumed.Field(f)
		score := SubScore(actual, eff.Field(f), w.Flexibility)
		sub[f] = score
		contribution := float64(score) * float64(weights.Field(f)) / 100
		total += contribution
		out.Details[f] = model.MacroDetail{
			Actual:       actual,
			Target:       eff.Field(f),
			Score:        score,
			Contribution: contribution,
		}
	}
	out.Breakdown = model.WindowBreakdown{
		Calories: sub[model.FieldCalories],
		Protein:  sub[model.FieldProtein],
		Carbs:    sub[model.FieldCarbs],
		Fat:      sub[model.FieldFat],
	}
	out.Score = clampScore(model.RoundHalfAway(total))
	out.Insight = windowInsight(out)
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
