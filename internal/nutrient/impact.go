package nutrient

import (
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// MaxPenalty caps the base penalty of a single anti-nutrient.
const MaxPenalty = 30.0

// CategoryScore is the impact score of one health category.
type CategoryScore struct {
	Category Category `json:"category"`
	Raw      float64  `json:"raw"`
	Penalty  float64  `json:"penalty"`
	Score    float64  `json:"score"`
}

// Penalty records how an anti-nutrient penalty was derived.
type Penalty struct {
	Nutrient string  `json:"nutrient"`
	Consumed float64 `json:"consumed"`
	Base     float64 `json:"base"`
	Adjusted float64 `json:"adjusted"`
}

// Impact is the per-category micronutrient impact of a set of intakes.
type Impact struct {
	Categories []CategoryScore `json:"categories"`
	Overall    float64         `json:"overall"`
	Penalties  []Penalty       `json:"penalties,omitempty"`
	// Unmatched lists input names with no catalog entry.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Category returns the score for c.
func (im Impact) Category(c Category) (CategoryScore, bool) {
	for _, cs := range im.Categories {
		if cs.Category == c {
			return cs, true
		}
	}
	return CategoryScore{}, false
}

// BasePenalty returns the unadjusted anti-nutrient penalty for consuming
// consumed against limit, capped at MaxPenalty.
func BasePenalty(consumed, limit float64, severity Severity) float64 {
	if limit <= 0 || consumed <= 0 {
		return 0
	}
	pct := consumed / limit
	var p float64
	switch {
	case pct <= 0.8:
		return 0
	case pct <= 1.2:
		p = (pct - 0.8) * 25
	case pct <= 2.0:
		p = 10 + (pct-1.2)*25
	default:
		p = 30
	}
	return math.Min(MaxPenalty, p*severity.Factor())
}

// AdjustPenalty applies context adjustments to a base penalty. Contexts are
// applied in ContextKind order regardless of input order: post-workout,
// pre-sleep, morning, fasting, stressed, illness. Changing this order changes
// results.
func AdjustPenalty(base float64, class PenaltyClass, contexts []model.NutritionContext) float64 {
	ordered := append([]model.NutritionContext(nil), contexts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind() < ordered[j].Kind()
	})
	p := base
	for _, ctx := range ordered {
		switch c := ctx.(type) {
		case model.PostWorkout:
			elapsed := c.Elapsed
			if elapsed < 0 {
				elapsed = 0
			}
			if class == ClassSodium {
				decay := math.Max(0, 1-elapsed.Hours()/4)
				p *= 1 - sodiumReduction(c.Intensity)*decay
			}
			if class == ClassSugar && elapsed <= time.Hour {
				p *= 0.7
			}
		case model.PreSleep:
			h := math.Max(0, c.HoursUntilSleep)
			if class == ClassCaffeine && h < 6 {
				p *= 2.0 - h/6
			}
			if class == ClassSugar && h < 3 {
				p *= 1.3
			}
		case model.Morning:
			if class == ClassCaffeine {
				p *= 0.5
			}
		case model.Fasting:
			p *= 1.2
		case model.Stressed:
			if class == ClassCaffeine {
				p *= 1.4
			}
		case model.Illness:
			p *= 0.8
		}
	}
	return math.Max(0, p)
}

func sodiumReduction(i model.Intensity) float64 {
	switch i {
	case model.IntensityLight:
		return 0.2
	case model.IntensityIntense:
		return 0.6
	default:
		return 0.4
	}
}

// Impact scores consumed amounts (by nutrient name, in catalog units) across
// the six health categories. Names with no catalog match are excluded and
// reported in Unmatched.
func (c *Catalog) Impact(consumed map[string]float64, sex model.Sex, contexts []model.NutritionContext) Impact {
	names := make([]string, 0, len(consumed))
	for name := range consumed {
		names = append(names, name)
	}
	sort.Strings(names)

	totals := map[string]float64{}
	infos := map[string]Info{}
	var order []string
	var unmatched []string
	for _, name := range names {
		info, ok := c.Lookup(name)
		if !ok {
			unmatched = append(unmatched, name)
			continue
		}
		if _, seen := infos[info.Name]; !seen {
			infos[info.Name] = info
			order = append(order, info.Name)
		}
		totals[info.Name] += consumed[name]
	}

	var penalties []Penalty
	penaltyByCat := map[Category]float64{}
	ratioSum := map[Category]float64{}
	ratioCount := map[Category]int{}
	for _, key := range order {
		info := infos[key]
		amount := totals[key]
		if info.Anti {
			base := BasePenalty(amount, info.Limit, info.Severity)
			adjusted := AdjustPenalty(base, info.Class, contexts)
			penalties = append(penalties, Penalty{Nutrient: info.Name, Consumed: amount, Base: base, Adjusted: adjusted})
			for _, cat := range info.Categories {
				penaltyByCat[cat] += adjusted
			}
			continue
		}
		rda := info.RDA.For(sex)
		if rda <= 0 {
			continue
		}
		for _, cat := range info.Categories {
			ratioSum[cat] += amount / rda
			ratioCount[cat]++
		}
	}

	out := Impact{Penalties: penalties, Unmatched: unmatched}
	var overall float64
	for _, cat := range Categories {
		cs := CategoryScore{Category: cat, Penalty: penaltyByCat[cat]}
		if n := ratioCount[cat]; n > 0 {
			cs.Raw = ratioSum[cat] / float64(n)
		}
		cs.Score = math.Max(0, cs.Raw-cs.Penalty/100)
		overall += cs.Score
		out.Categories = append(out.Categories, cs)
	}
	out.Overall = overall / float64(len(Categories))
	return out
}

// SumMicronutrients merges micronutrient maps of meals by name.
func SumMicronutrients(meals []model.LoggedMeal) map[string]float64 {
	out := map[string]float64{}
	for _, m := range meals {
		for name, amount := range m.Micronutrients {
			out[name] += amount
		}
	}
	return out
}
