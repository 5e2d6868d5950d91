package domain

import (
	"time"

	leveldomain "memberd/internal/level/domain"
)

// CalculateExpiration computes the next paid-through date for a membership
// on the given level. The current expiration is used as the base when it is
// still in the future on an active membership, so early renewals extend the
// existing term instead of restarting it; fromToday forces a restart. Trial
// signups use the level's trial duration. Lifetime levels return nil.
//
// The result always lands at 23:59:59 UTC. When the landing day of month is
// the 29th, 30th or 31st and the cycle is not day-based, the date is pushed
// to the 1st of the following month so monthly renewals stay on a billable
// day in every month.
func CalculateExpiration(now time.Time, m *Membership, lvl *leveldomain.Level, fromToday, trial bool) *time.Time {
	duration := lvl.Duration
	unit := lvl.DurationUnit
	if trial {
		duration = lvl.TrialDuration
		unit = lvl.TrialDurationUnit
	}
	if duration <= 0 {
		return nil
	}

	base := now
	if m != nil && !fromToday && m.Status == StatusActive &&
		m.ExpirationAt != nil && m.ExpirationAt.After(now) {
		base = *m.ExpirationAt
	}
	base = base.UTC()

	var landed time.Time
	switch unit {
	case leveldomain.UnitDay:
		landed = base.AddDate(0, 0, duration)
	case leveldomain.UnitWeek:
		landed = base.AddDate(0, 0, duration*7)
	case leveldomain.UnitMonth:
		landed = base.AddDate(0, duration, 0)
	case leveldomain.UnitYear:
		landed = base.AddDate(duration, 0, 0)
	default:
		landed = base.AddDate(0, duration, 0)
	}

	exp := time.Date(landed.Year(), landed.Month(), landed.Day(), 23, 59, 59, 0, time.UTC)

	if unit != leveldomain.UnitDay {
		switch exp.Day() {
		case 29, 30, 31:
			exp = time.Date(exp.Year(), exp.Month(), 1, 23, 59, 59, 0, time.UTC).AddDate(0, 1, 0)
		}
	}

	return &exp
}
