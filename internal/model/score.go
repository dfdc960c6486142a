package model

// Impact is the sign of a health factor.
type Impact string

// Factor impacts.
const (
	ImpactPositive Impact = "positive"
	ImpactNeutral  Impact = "neutral"
	ImpactNegative Impact = "negative"
)

// HealthFactor is an AI-derived factor contributing to a meal's health score.
type HealthFactor struct {
	Name   string  `json:"name"`
	Impact Impact  `json:"impact"`
	Weight float64 `json:"weight"`
}

// HealthBreakdown holds category subtotals in points on [-5, +5].
type HealthBreakdown struct {
	MacroBalance      float64 `json:"macroBalance"`
	FoodQuality       float64 `json:"foodQuality"`
	ProteinEfficiency float64 `json:"proteinEfficiency"`
	Micronutrients    float64 `json:"micronutrients"`
	PortionSize       float64 `json:"portionSize"`
}

// HealthScore is the per-meal score supplied by the meal analysis pipeline.
type HealthScore struct {
	Score     int              `json:"score"`
	Factors   []HealthFactor   `json:"factors,omitempty"`
	Breakdown *HealthBreakdown `json:"breakdown,omitempty"`
	Insight   string           `json:"insight,omitempty"`
}

// Clone returns a deep copy.
func (h HealthScore) Clone() HealthScore {
	if h.Factors != nil {
		h.Factors = append([]HealthFactor(nil), h.Factors...)
	}
	if h.Breakdown != nil {
		b := *h.Breakdown
		h.Breakdown = &b
	}
	return h
}

// MacroDetail describes adherence for one field of a window.
type MacroDetail struct {
	Actual       float64 `json:"actual"`
	Target       int     `json:"target"`
	Score        int     `json:"score"`
	Contribution float64 `json:"contribution"`
}

// WindowBreakdown holds the four per-field sub-scores.
type WindowBreakdown struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Field returns the sub-score for f.
func (b WindowBreakdown) Field(f Field) int {
	switch f {
	case FieldProtein:
		return b.Protein
	case FieldCarbs:
		return b.Carbs
	case FieldFat:
		return b.Fat
	default:
		return b.Calories
	}
}

// WindowScore is the adherence score for one window.
type WindowScore struct {
	WindowID  string                `json:"windowId"`
	Score     int                   `json:"score"`
	Breakdown WindowBreakdown       `json:"breakdown"`
	Details   map[Field]MacroDetail `json:"-"`
	Insight   string                `json:"insight"`
}

// DailyComponent is one weighted component of a daily score.
type DailyComponent struct {
	Name string `json:"name"`
	// Weight is a percentage. Component weights of a DailyScore sum to 100.
	Weight int     `json:"weight"`
	Value  float64 `json:"value"`
}

// DailyBreakdown is the four-component daily breakdown.
type DailyBreakdown struct {
	Adherence   DailyComponent `json:"adherence"`
	FoodQuality DailyComponent `json:"foodQuality"`
	Timing      DailyComponent `json:"timing"`
	Consistency DailyComponent `json:"consistency"`
}

// Components returns the breakdown in a fixed order.
func (b DailyBreakdown) Components() []DailyComponent {
	return []DailyComponent{b.Adherence, b.FoodQuality, b.Timing, b.Consistency}
}

// DailyScore is the aggregate score for a day.
type DailyScore struct {
	Day       string         `json:"day"`
	Score     int            `json:"score"`
	Breakdown DailyBreakdown `json:"breakdown"`
	Insight   string         `json:"insight"`
}
