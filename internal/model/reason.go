package model

import "fmt"

// ReasonKind identifies a RedistributionReason variant.
type ReasonKind string

// Reason kinds.
const (
	ReasonOverconsumption  ReasonKind = "overconsumption"
	ReasonUnderconsumption ReasonKind = "underconsumption"
	ReasonMissedWindow     ReasonKind = "missed-window"
	ReasonLateConsumption  ReasonKind = "late-consumption"
	ReasonEarlyConsumption ReasonKind = "early-consumption"
)

// RedistributionReason explains why a window's targets were adjusted.
// The set of implementations is closed.
type RedistributionReason interface {
	Kind() ReasonKind
	isRedistributionReason()
}

// Overconsumption records a source window eaten above 120% of target.
type Overconsumption struct {
	Percent float64
}

// Underconsumption records a completed source window eaten below 80% of target.
type Underconsumption struct {
	Percent float64
}

// MissedWindow records a source window that closed with no meals.
type MissedWindow struct{}

// LateConsumption records a source window whose first meal came after its end.
type LateConsumption struct{}

// EarlyConsumption records a source window whose first meal came before its start.
type EarlyConsumption struct{}

// Kind implements RedistributionReason.
func (Overconsumption) Kind() ReasonKind { return ReasonOverconsumption }

// Kind implements RedistributionReason.
func (Underconsumption) Kind() ReasonKind { return ReasonUnderconsumption }

// Kind implements RedistributionReason.
func (MissedWindow) Kind() ReasonKind { return ReasonMissedWindow }

// Kind implements RedistributionReason.
func (LateConsumption) Kind() ReasonKind { return ReasonLateConsumption }

// Kind implements RedistributionReason.
func (EarlyConsumption) Kind() ReasonKind { return ReasonEarlyConsumption }

func (Overconsumption) isRedistributionReason()  {}
func (Underconsumption) isRedistributionReason() {}
func (MissedWindow) isRedistributionReason()     {}
func (LateConsumption) isRedistributionReason()  {}
func (EarlyConsumption) isRedistributionReason() {}

// ReasonPercent returns the payload percent for reasons that carry one.
func ReasonPercent(r RedistributionReason) (float64, bool) {
	switch v := r.(type) {
	case Overconsumption:
		return v.Percent, true
	case Underconsumption:
		return v.Percent, true
	default:
		return 0, false
	}
}

// NewReason rebuilds a reason from its persisted kind and percent.
// An empty kind yields a nil reason.
func NewReason(kind ReasonKind, percent float64) (RedistributionReason, error) {
	switch kind {
	case "":
		return nil, nil
	case ReasonOverconsumption:
		return Overconsumption{Percent: percent}, nil
	case ReasonUnderconsumption:
		return Underconsumption{Percent: percent}, nil
	case ReasonMissedWindow:
		return MissedWindow{}, nil
	case ReasonLateConsumption:
		return LateConsumption{}, nil
	case ReasonEarlyConsumption:
		return EarlyConsumption{}, nil
	default:
		return nil, fmt.Errorf("unknown redistribution reason %q", kind)
	}
}

// DescribeReason renders a reason for display.
func DescribeReason(r RedistributionReason) string {
	switch v := r.(type) {
	case nil:
		return ""
	case Overconsumption:
		return fmt.Sprintf("overconsumption (%.0f%%)", v.Percent)
	case Underconsumption:
		return fmt.Sprintf("underconsumption (%.0f%%)", v.Percent)
	default:
		return string(r.Kind())
	}
}
