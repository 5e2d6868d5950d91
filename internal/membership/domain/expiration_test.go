package domain

import (
	"testing"
	"time"

	leveldomain "memberd/internal/level/domain"
)

func date(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
}

func TestCalculateExpirationMonthEndSnapsToFirst(t *testing.T) {
	now := date(2024, time.October, 31, 10, 0, 0)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitMonth}
	m := &Membership{}

	exp := CalculateExpiration(now, m, lvl, false, false)
	if exp == nil {
		t.Fatal("expected expiration")
	}
	// Oct 31 + 1 month normalizes to Dec 1, which the month-end rule keeps.
	want := date(2024, time.December, 1, 23, 59, 59)
	if !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationJan30SnapsToMarchFirst(t *testing.T) {
	now := date(2024, time.January, 30, 8, 0, 0)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitMonth}

	exp := CalculateExpiration(now, &Membership{}, lvl, false, false)
	// Jan 30 + 1 month = Mar 1 (normalized), which lands on day 1 already.
	want := date(2024, time.March, 1, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationMidMonthKeepsDay(t *testing.T) {
	now := date(2024, time.March, 15, 12, 0, 0)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitMonth}

	exp := CalculateExpiration(now, &Membership{}, lvl, false, false)
	want := date(2024, time.April, 15, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationDayUnitNeverSnaps(t *testing.T) {
	now := date(2024, time.January, 30, 8, 0, 0)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitDay}

	exp := CalculateExpiration(now, &Membership{}, lvl, false, false)
	want := date(2024, time.January, 31, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationLifetime(t *testing.T) {
	lvl := &leveldomain.Level{Duration: 0, DurationUnit: leveldomain.UnitMonth}
	if exp := CalculateExpiration(time.Now().UTC(), &Membership{}, lvl, false, false); exp != nil {
		t.Fatalf("lifetime level should have nil expiration, got %v", exp)
	}
}

func TestCalculateExpirationExtendsCurrentTerm(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	current := date(2024, time.June, 10, 23, 59, 59)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitMonth}
	m := &Membership{Status: StatusActive, ExpirationAt: &current}

	exp := CalculateExpiration(now, m, lvl, false, false)
	want := date(2024, time.July, 10, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationFromTodayIgnoresCurrentTerm(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	current := date(2024, time.June, 10, 23, 59, 59)
	lvl := &leveldomain.Level{Duration: 1, DurationUnit: leveldomain.UnitMonth}
	m := &Membership{Status: StatusActive, ExpirationAt: &current}

	exp := CalculateExpiration(now, m, lvl, true, false)
	want := date(2024, time.July, 1, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}

func TestCalculateExpirationTrialUsesTrialTerm(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	lvl := &leveldomain.Level{
		Duration:          1,
		DurationUnit:      leveldomain.UnitMonth,
		TrialDuration:     14,
		TrialDurationUnit: leveldomain.UnitDay,
	}

	exp := CalculateExpiration(now, &Membership{}, lvl, false, true)
	want := date(2024, time.June, 15, 23, 59, 59)
	if exp == nil || !exp.Equal(want) {
		t.Fatalf("expiration = %v, want %v", exp, want)
	}
}
