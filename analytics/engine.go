// Package analytics classifies stock urgency and sizes reorders from
// consumption observed over a window. It is a pure engine: callers feed it
// aggregated movement sums and the brand lead time, it never touches the
// database.
package analytics

import "math"

// Urgency classes.
const (
	UrgencyCritical = "critical"
	UrgencyWarning  = "warning"
	UrgencyNormal   = "normal"
)

// Reorders cover two lead times of projected consumption.
const safetyFactor = 2

// Assessment is the stock outlook for one item. DaysLeft is null when the
// consumption rate is zero (stock never runs out).
type Assessment struct {
	UnitsSold          int      `json:"units_sold"`
	DailyRate          float64  `json:"daily_rate"`
	DaysLeft           *float64 `json:"days_left"`
	LeadTimeDays       int      `json:"lead_time_days"`
	Urgency            string   `json:"urgency"`
	RecommendedReorder int      `json:"recommended_reorder"`
}

// Assess computes the stock outlook for one item.
//
// unitsSold is OUT minus RETURN over the window (returns reduce demand) and
// is clamped at zero: a window where returns outnumber sales reads as no
// demand, not negative demand.
func Assess(currentQuantity, unitsSold, windowDays, leadTimeDays int) Assessment {
	if windowDays < 1 {
		windowDays = 1
	}
	if unitsSold < 0 {
		unitsSold = 0
	}

	rate := float64(unitsSold) / float64(windowDays)

	daysLeft := math.Inf(1)
	a := Assessment{
		UnitsSold:    unitsSold,
		DailyRate:    rate,
		LeadTimeDays: leadTimeDays,
	}
	if rate > 0 {
		daysLeft = float64(currentQuantity) / rate
		a.DaysLeft = &daysLeft
	}

	switch {
	case daysLeft < float64(leadTimeDays):
		a.Urgency = UrgencyCritical
	case daysLeft < float64(2*leadTimeDays):
		a.Urgency = UrgencyWarning
	default:
		a.Urgency = UrgencyNormal
	}

	reorder := int(math.Ceil(rate*float64(leadTimeDays)*safetyFactor)) - currentQuantity
	if reorder < 0 {
		reorder = 0
	}
	a.RecommendedReorder = reorder

	return a
}
