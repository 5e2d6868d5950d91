package domain

import (
	"testing"
	"time"
)

func TestIsActiveCancelledKeepsAccessUntilExpiration(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	future := date(2024, time.June, 20, 23, 59, 59)
	past := date(2024, time.May, 20, 23, 59, 59)

	m := &Membership{Status: StatusCancelled, ExpirationAt: &future}
	if !m.IsActive(now) {
		t.Fatal("cancelled membership with future expiration should still be active")
	}

	m.ExpirationAt = &past
	if m.IsActive(now) {
		t.Fatal("cancelled membership past expiration should not be active")
	}
}

func TestIsActiveDisabledNeverActive(t *testing.T) {
	now := time.Now().UTC()
	m := &Membership{Status: StatusActive, Disabled: true}
	if m.IsActive(now) {
		t.Fatal("disabled membership should not be active")
	}
}

func TestAtMaximumRenewals(t *testing.T) {
	m := &Membership{MaximumRenewals: 2}

	// The first payment is not a renewal, so the cap is hit on the third bill.
	for billed, want := range map[int]bool{1: false, 2: false, 3: true, 4: true} {
		m.TimesBilled = billed
		if got := m.AtMaximumRenewals(); got != want {
			t.Fatalf("times_billed=%d: AtMaximumRenewals = %v, want %v", billed, got, want)
		}
	}

	m = &Membership{MaximumRenewals: 0, TimesBilled: 100}
	if m.AtMaximumRenewals() {
		t.Fatal("membership without payment plan never hits the cap")
	}
}

func TestEffectiveStatusExpiredOverlay(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	past := date(2024, time.May, 1, 23, 59, 59)

	m := &Membership{Status: StatusActive, ExpirationAt: &past}
	if got := m.EffectiveStatus(now); got != StatusExpired {
		t.Fatalf("EffectiveStatus = %v, want %v", got, StatusExpired)
	}

	m.Status = StatusPending
	if got := m.EffectiveStatus(now); got != StatusPending {
		t.Fatalf("pending is exempt from the overlay, got %v", got)
	}
}

func TestIsTrialing(t *testing.T) {
	now := date(2024, time.June, 1, 0, 0, 0)
	trialEnd := date(2024, time.June, 10, 23, 59, 59)

	m := &Membership{Status: StatusActive, TrialEndAt: &trialEnd}
	if !m.IsTrialing(now) {
		t.Fatal("membership inside trial window should be trialing")
	}
	if !m.IsPaid(now, 9.99) {
		t.Fatal("trialing membership counts as paid")
	}

	ended := date(2024, time.May, 1, 23, 59, 59)
	m.TrialEndAt = &ended
	if m.IsTrialing(now) {
		t.Fatal("membership past trial end should not be trialing")
	}
}
