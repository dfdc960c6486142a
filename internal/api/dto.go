package api

import (
	"time"

	"github.com/verte-zerg/nutriplan/internal/day"
	"github.com/verte-zerg/nutriplan/internal/model"
	"github.com/verte-zerg/nutriplan/internal/nutrient"
	"github.com/verte-zerg/nutriplan/internal/window"
)

type reasonJSON struct {
	Kind    model.ReasonKind `json:"kind"`
	Percent *float64         `json:"percent,omitempty"`
}

type windowJSON struct {
	ID               string            `json:"id"`
	Start            time.Time         `json:"start"`
	End              time.Time         `json:"end"`
	Purpose          model.Purpose     `json:"purpose"`
	Flexibility      model.Flexibility `json:"flexibility"`
	State            window.State      `json:"state"`
	Target           model.Targets     `json:"target"`
	Adjusted         *model.Targets    `json:"adjusted,omitempty"`
	Effective        model.Targets     `json:"effective"`
	Reason           *reasonJSON       `json:"reason,omitempty"`
	Consumed         model.Intake      `json:"consumed"`
	Fasted           bool              `json:"fasted,omitempty"`
	MinutesRemaining *int              `json:"minutesRemaining,omitempty"`
	HoursLate        *float64          `json:"hoursLate,omitempty"`
	Meals            []string          `json:"meals,omitempty"`
}

type dayJSON struct {
	Day        string       `json:"day"`
	Generation int64        `json:"generation"`
	Now        time.Time    `json:"now"`
	Windows    []windowJSON `json:"windows"`
}

type mealJSON struct {
	ID             string             `json:"id"`
	Timestamp      time.Time          `json:"timestamp"`
	Calories       float64            `json:"calories"`
	Protein        float64            `json:"protein"`
	Carbs          float64            `json:"carbs"`
	Fat            float64            `json:"fat"`
	Micronutrients map[string]float64 `json:"micronutrients,omitempty"`
	WindowID       string             `json:"windowId,omitempty"`
	Health         *model.HealthScore `json:"health,omitempty"`
}

func (m mealJSON) toModel() model.LoggedMeal {
	return model.LoggedMeal{
		ID:             m.ID,
		Timestamp:      m.Timestamp,
		Calories:       m.Calories,
		Protein:        m.Protein,
		Carbs:          m.Carbs,
		Fat:            m.Fat,
		Micronutrients: m.Micronutrients,
		WindowID:       m.WindowID,
		Health:         m.Health,
	}
}

type planRequest struct {
	Wake       string         `json:"wake"`
	Sleep      string         `json:"sleep"`
	Workout    string         `json:"workout"`
	Energy     model.Energy   `json:"energy"`
	Targets    *model.Targets `json:"targets"`
	QuickMeals []mealJSON     `json:"quickMeals"`
}

type partialJSON struct {
	Tomorrow         bool          `json:"tomorrow"`
	RemainingHours   float64       `json:"remainingHours"`
	TotalWakingHours float64       `json:"totalWakingHours"`
	Factor           float64       `json:"factor"`
	ProRated         model.Targets `json:"proRated"`
	Plan             dayJSON       `json:"plan"`
}

type scoreJSON struct {
	Daily   model.DailyScore    `json:"daily"`
	Windows []model.WindowScore `json:"windows"`
}

type nutrientJSON struct {
	Name       string              `json:"name"`
	Aliases    []string            `json:"aliases,omitempty"`
	Unit       string              `json:"unit"`
	RDA        map[string]float64  `json:"rda,omitempty"`
	Categories []nutrient.Category `json:"categories"`
	Anti       bool                `json:"anti,omitempty"`
	Limit      float64             `json:"limit,omitempty"`
	Severity   nutrient.Severity   `json:"severity,omitempty"`
}

func newDayJSON(snap day.Snapshot) dayJSON {
	out := dayJSON{
		Day:        snap.Day,
		Generation: snap.Generation,
		Now:        snap.Now,
		Windows:    make([]windowJSON, 0, len(snap.Windows)),
	}
	for _, w := range snap.Windows {
		wj := windowJSON{
			ID:          w.ID,
			Start:       w.Start,
			End:         w.End,
			Purpose:     w.Purpose,
			Flexibility: w.Flexibility,
			State:       snap.States[w.ID],
			Target:      w.Target,
			Adjusted:    w.Adjusted,
			Effective:   w.Effective(),
			Consumed:    w.Consumed,
			Fasted:      w.Fasted,
		}
		if w.Reason != nil {
			wj.Reason = &reasonJSON{Kind: w.Reason.Kind()}
			if pct, ok := model.ReasonPercent(w.Reason); ok {
				wj.Reason.Percent = &pct
			}
		}
		if left, ok := window.TimeRemaining(snap.Now, w); ok {
			mins := int(left / time.Minute)
			wj.MinutesRemaining = &mins
		}
		if late, ok := window.HoursLate(snap.Now, w); ok {
			wj.HoursLate = &late
		}
		for _, m := range window.MealsIn(w, snap.Meals) {
			wj.Meals = append(wj.Meals, m.ID)
		}
		out.Windows = append(out.Windows, wj)
	}
	return out
}

func newNutrientJSON(info nutrient.Info) nutrientJSON {
	out := nutrientJSON{
		Name:       info.Name,
		Aliases:    info.Aliases,
		Unit:       info.Unit,
		Categories: info.Categories,
		Anti:       info.Anti,
	}
	if info.Anti {
		out.Limit = info.Limit
		out.Severity = info.Severity
	} else {
		out.RDA = map[string]float64{"male": info.RDA.Male, "female": info.RDA.Female}
	}
	return out
}
