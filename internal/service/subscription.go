package service

import (
	"iter"
	"slices"
	"time"

	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
)

// DeliveryDay is one calendar day of an order's delivery period.
type DeliveryDay struct {
	Date        time.Time `json:"-"`
	DayNumber   int       `json:"day_number"`
	MealsPerDay int32     `json:"meals_per_day"`
}

// SubscriptionProgress reports how far into its period an order is.
type SubscriptionProgress struct {
	TotalDays     int    `json:"total_days"`
	ElapsedDays   int    `json:"elapsed_days"`
	RemainingDays int    `json:"remaining_days"`
	Phase         string `json:"phase"`
}

// ExpandDays yields one DeliveryDay per date in [start_date, end_date].
// The sequence is finite and can be ranged over any number of times.
func ExpandDays(o database.Order) iter.Seq[DeliveryDay] {
	start, end, ok := orderRange(o)
	meals := o.MealsPerDay
	if meals <= 0 {
		meals = 1
	}
	return func(yield func(DeliveryDay) bool) {
		if !ok {
			return
		}
		n := 1
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(DeliveryDay{Date: d, DayNumber: n, MealsPerDay: meals}) {
				return
			}
			n++
		}
	}
}

// CollectDays materializes ExpandDays.
func CollectDays(o database.Order) []DeliveryDay {
	return slices.Collect(ExpandDays(o))
}

// Progress derives the subscription phase of o on the calendar date today.
// Only dates are considered; a cancelled order still reports its stored range.
func Progress(o database.Order, today time.Time) SubscriptionProgress {
	start, end, ok := orderRange(o)
	if !ok {
		return SubscriptionProgress{Phase: enum.SubscriptionPhaseUpcoming}
	}
	today = civilDate(today)
	total := daysBetween(start, end) + 1

	switch {
	case today.Before(start):
		return SubscriptionProgress{TotalDays: total, RemainingDays: total, Phase: enum.SubscriptionPhaseUpcoming}
	case today.After(end):
		return SubscriptionProgress{TotalDays: total, ElapsedDays: total, Phase: enum.SubscriptionPhaseCompleted}
	}
	elapsed := daysBetween(start, today) + 1
	return SubscriptionProgress{
		TotalDays:     total,
		ElapsedDays:   elapsed,
		RemainingDays: total - elapsed,
		Phase:         enum.SubscriptionPhaseActive,
	}
}

const secondsPerDay = 24 * 60 * 60

func orderRange(o database.Order) (time.Time, time.Time, bool) {
	if !o.StartDate.Valid || !o.EndDate.Valid {
		return time.Time{}, time.Time{}, false
	}
	start, end := civilDate(o.StartDate.Time), civilDate(o.EndDate.Time)
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// daysBetween counts whole calendar days from a to b. Both are UTC midnights.
// Unix seconds keep the count exact past the range of time.Duration.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}
