package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// Periodicity is the billing cadence of a rate card.
type Periodicity string

const (
	PeriodicityMonthly   Periodicity = "monthly"
	PeriodicityQuarterly Periodicity = "quarterly"
	PeriodicityBiannual  Periodicity = "biannual"
	PeriodicityAnnual    Periodicity = "annual"
	PeriodicityOneOff    Periodicity = "oneoff"
)

// RateCard defines the dues amount for a member kind over a validity
// window. Dues records created from a rate card keep a back-reference
// for reporting.
type RateCard struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	MemberKind  string          `gorm:"type:varchar(50);index" json:"member_kind"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Periodicity Periodicity     `gorm:"type:varchar(20);default:'annual'" json:"periodicity"`
	ValidFrom   time.Time       `json:"valid_from"`
	ValidUntil  *time.Time      `json:"valid_until,omitempty"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
}

// Active reports whether the rate card is in force at the given date.
func (r RateCard) Active(at time.Time) bool {
	if at.Before(r.ValidFrom) {
		return false
	}
	return r.ValidUntil == nil || !r.ValidUntil.Before(at)
}

// basePeriodDays is the reference period length used for prorating.
func (r RateCard) basePeriodDays() int {
	switch r.Periodicity {
	case PeriodicityMonthly:
		return 30
	case PeriodicityQuarterly:
		return 90
	case PeriodicityBiannual:
		return 180
	default:
		return 365
	}
}

func (r RateCard) recurrenceOption() (rrule.ROption, bool) {
	switch r.Periodicity {
	case PeriodicityMonthly:
		return rrule.ROption{Freq: rrule.MONTHLY}, true
	case PeriodicityQuarterly:
		return rrule.ROption{Freq: rrule.MONTHLY, Interval: 3}, true
	case PeriodicityBiannual:
		return rrule.ROption{Freq: rrule.MONTHLY, Interval: 6}, true
	case PeriodicityAnnual:
		return rrule.ROption{Freq: rrule.YEARLY}, true
	default:
		return rrule.ROption{}, false
	}
}

// PeriodEnd returns the last day of the coverage period starting at the
// given date, computed from the card's recurrence. One-off cards have no
// recurring period and return the start date unchanged.
func (r RateCard) PeriodEnd(start time.Time) time.Time {
	opt, ok := r.recurrenceOption()
	if !ok {
		return start
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return start
	}
	next := rule.After(start, false)
	if next.IsZero() {
		return start
	}
	return next.AddDate(0, 0, -1)
}

// ProratedAmount computes the dues amount for a partial coverage period.
// The ratio of effective days over the base period is capped at 1 for
// every cadence except annual, and the result is rounded to 2 decimals.
func (r RateCard) ProratedAmount(start, end time.Time) decimal.Decimal {
	if start.IsZero() {
		return r.Amount
	}
	if end.IsZero() || end.Before(start) {
		end = start
	}
	if r.Periodicity == PeriodicityOneOff {
		return r.Amount
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	ratio := decimal.NewFromInt(int64(days)).Div(decimal.NewFromInt(int64(r.basePeriodDays())))
	if r.Periodicity != PeriodicityAnnual && ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}

	return r.Amount.Mul(ratio).Round(2)
}
