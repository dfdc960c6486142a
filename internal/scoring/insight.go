package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/verte-zerg/nutriplan/internal/model"
)

const (
	onTargetScore    = 90
	closeTargetScore = 70
)

func bucketInsight(score int) (string, bool) {
	switch {
	case score >= onTargetScore:
		return "On target", true
	case score >= closeTargetScore:
		return "Close to target", true
	default:
		return "", false
	}
}

func windowInsight(ws model.WindowScore) string {
	if text, ok := bucketInsight(ws.Score); ok {
		return text
	}
	lowest := model.FieldCalories
	for _, f := range model.Fields {
		if ws.Breakdown.Field(f) < ws.Breakdown.Field(lowest) {
			lowest = f
		}
	}
	d := ws.Details[lowest]
	name := capitalize(lowest.String())
	if d.Target <= 0 {
		return fmt.Sprintf("%s logged without a target", name)
	}
	diff := d.Actual - float64(d.Target)
	direction := "over"
	if diff < 0 {
		direction = "under"
	}
	pct := model.RoundHalfAway(math.Abs(diff) / float64(d.Target) * 100)
	return fmt.Sprintf("%s was %d%% %s target", name, pct, direction)
}

func dailyInsight(score int, b model.DailyBreakdown) string {
	if text, ok := bucketInsight(score); ok {
		return text
	}
	comps := b.Components()
	lowest := comps[0]
	for _, c := range comps[1:] {
		if c.Value < lowest.Value {
			lowest = c
		}
	}
	switch lowest.Name {
	case ComponentAdherence:
		return fmt.Sprintf("Window targets were off (adherence %.0f)", lowest.Value)
	case ComponentFoodQuality:
		return fmt.Sprintf("Food quality was low (%.0f)", lowest.Value)
	case ComponentTiming:
		return fmt.Sprintf("Meals were logged outside their windows (timing %.0f)", lowest.Value)
	default:
		return fmt.Sprintf("Calories were back-loaded late in the day (consistency %.0f)", lowest.Value)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
