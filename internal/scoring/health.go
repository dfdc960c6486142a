// Package scoring derives meal, window and day scores from windows and meals.
package scoring

import (
	"math"

	"github.com/verte-zerg/nutriplan/internal/model"
)

// Bucket is a display grade for a meal health score.
type Bucket string

// Health buckets.
const (
	Excellent Bucket = "excellent"
	Good      Bucket = "good"
	Okay      Bucket = "okay"
	Poor      Bucket = "poor"
	Bad       Bucket = "bad"
)

// Health breakdown weights.
const (
	macroBalanceWeight      = 0.30
	foodQualityWeight       = 0.25
	proteinEfficiencyWeight = 0.20
	micronutrientsWeight    = 0.15
	portionSizeWeight       = 0.10
	breakdownBase           = 5.0
)

// DisplayScore maps a 0-100 health score to the 0-10 display scale.
func DisplayScore(h model.HealthScore) float64 {
	return float64(h.Score) / 10
}

// BucketFor grades a display score.
func BucketFor(display float64) Bucket {
	switch {
	case display >= 8.5:
		return Excellent
	case display >= 7:
		return Good
	case display >= 5:
		return Okay
	case display >= 3:
		return Poor
	default:
		return Bad
	}
}

// BreakdownTotal combines category subtotals onto the 0-10 display scale.
func BreakdownTotal(b model.HealthBreakdown) float64 {
	total := breakdownBase +
		macroBalanceWeight*b.MacroBalance +
		foodQualityWeight*b.FoodQuality +
		proteinEfficiencyWeight*b.ProteinEfficiency +
		micronutrientsWeight*b.Micronutrients +
		portionSizeWeight*b.PortionSize
	return math.Max(0, math.Min(10, total))
}
