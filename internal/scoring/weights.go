package scoring

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// Weights are per-field percentages used to average window sub-scores.
type Weights struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// EqualWeights is the default 25% per field.
var EqualWeights = Weights{Calories: 25, Protein: 25, Carbs: 25, Fat: 25}

// Field returns the weight of f.
func (w Weights) Field(f model.Field) int {
	switch f {
	case model.FieldProtein:
		return w.Protein
	case model.FieldCarbs:
		return w.Carbs
	case model.FieldFat:
		return w.Fat
	default:
		return w.Calories
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() int {
	return w.Calories + w.Protein + w.Carbs + w.Fat
}

// WeightTable maps purposes to weight overrides. Purposes without an entry use
// EqualWeights.
type WeightTable map[model.Purpose]Weights

// DefaultWeights returns the built-in table: protein-heavy recovery windows and
// carb-heavy pre-workout windows.
func DefaultWeights() WeightTable {
	return WeightTable{
		model.PurposeRecovery:   {Calories: 20, Protein: 40, Carbs: 20, Fat: 20},
		model.PurposePreWorkout: {Calories: 20, Protein: 20, Carbs: 40, Fat: 20},
	}
}

// For returns the weights for a purpose.
func (t WeightTable) For(p model.Purpose) Weights {
	if w, ok := t[p]; ok {
		return w
	}
	return EqualWeights
}

// Validate checks that every entry is non-negative and sums to 100.
func (t WeightTable) Validate() error {
	for _, p := range t.Purposes() {
		w := t[p]
		if !p.Valid() {
			return fmt.Errorf("unknown purpose %q in weight table", p)
		}
		if w.Calories < 0 || w.Protein < 0 || w.Carbs < 0 || w.Fat < 0 {
			return fmt.Errorf("negative weight for %s", p)
		}
		if w.Sum() != 100 {
			return fmt.Errorf("weights for %s sum to %d, want 100", p, w.Sum())
		}
	}
	return nil
}

// Purposes returns the overridden purposes in sorted order.
func (t WeightTable) Purposes() []model.Purpose {
	out := make([]model.Purpose, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge returns a copy of t with entries from o replacing t's.
func (t WeightTable) Merge(o WeightTable) WeightTable {
	out := make(WeightTable, len(t)+len(o))
	for p, w := range t {
		out[p] = w
	}
	for p, w := range o {
		out[p] = w
	}
	return out
}
