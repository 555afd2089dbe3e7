package service

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Quote is the computed end date and fixed price of an order.
type Quote struct {
	StartDate    time.Time
	EndDate      time.Time
	Price        decimal.Decimal
	DurationDays int32
	MealsPerDay  int32
}

// ComputeOrder derives the end date and price of an order. A nil plan is a
// single "One Day" order priced at the tiffin cost. A plan price covers the
// whole period and is not multiplied by its duration.
//
// It has no side effects and is safe for concurrent use.
func ComputeOrder(tiffin database.Tiffin, plan *database.SubscriptionPlan, start time.Time) (Quote, error) {
	if start.IsZero() {
		return Quote{}, fmt.Errorf("start_date is required: %w", ErrInvalidInput)
	}
	start = civilDate(start)

	if plan == nil {
		return Quote{
			StartDate:    start,
			EndDate:      start,
			Price:        numericToDecimal(tiffin.Cost),
			DurationDays: 1,
			MealsPerDay:  1,
		}, nil
	}

	if plan.DurationDays <= 0 {
		return Quote{}, fmt.Errorf("duration_days must be > 0: %w", ErrInvalidInput)
	}

	return Quote{
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, int(plan.DurationDays)-1),
		Price:        numericToDecimal(plan.Price),
		DurationDays: plan.DurationDays,
		MealsPerDay:  plan.MealsPerDay,
	}, nil
}

// ParseDate parses a YYYY-MM-DD calendar date. Out-of-range days such as
// 2026-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, ErrInvalidInput)
	}
	return t, nil
}

// civilDate strips the clock and zone, keeping the calendar date as UTC midnight.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

func dateToPg(t time.Time) pgtype.Date {
	return pgtype.Date{Time: civilDate(t), Valid: true}
}
