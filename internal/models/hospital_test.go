package models

import "testing"

func TestHospitalTransitions(t *testing.T) {
	cases := []struct {
		from    HospitalStatus
		to      HospitalStatus
		allowed bool
	}{
		{HospitalStatusPending, HospitalStatusVerified, true},
		{HospitalStatusPending, HospitalStatusInactive, true},
		{HospitalStatusPending, HospitalStatusActive, false},
		{HospitalStatusPending, HospitalStatusSuspended, false},

		{HospitalStatusVerified, HospitalStatusActive, true},
		{HospitalStatusVerified, HospitalStatusInactive, true},
		{HospitalStatusVerified, HospitalStatusSuspended, false},
		{HospitalStatusVerified, HospitalStatusPending, false},

		{HospitalStatusActive, HospitalStatusSuspended, true},
		{HospitalStatusActive, HospitalStatusInactive, true},
		{HospitalStatusActive, HospitalStatusVerified, false},

		{HospitalStatusSuspended, HospitalStatusActive, true},
		{HospitalStatusSuspended, HospitalStatusInactive, true},
		{HospitalStatusSuspended, HospitalStatusVerified, false},

		{HospitalStatusInactive, HospitalStatusActive, false},
		{HospitalStatusInactive, HospitalStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestHospitalTransitionMutation(t *testing.T) {
	h := Hospital{Name: "City General", Status: HospitalStatusPending}

	if err := h.Transition(HospitalStatusActive); err == nil {
		t.Fatal("PENDING to ACTIVE must be rejected")
	}
	if h.Status != HospitalStatusPending {
		t.Errorf("status mutated on rejected transition: %s", h.Status)
	}

	if err := h.Transition(HospitalStatusVerified); err != nil {
		t.Fatalf("PENDING to VERIFIED: %v", err)
	}
	if h.Status != HospitalStatusVerified {
		t.Errorf("status = %s, want VERIFIED", h.Status)
	}
}

func TestHospitalOperable(t *testing.T) {
	operable := map[HospitalStatus]bool{
		HospitalStatusPending:   false,
		HospitalStatusVerified:  true,
		HospitalStatusActive:    true,
		HospitalStatusSuspended: false,
		HospitalStatusInactive:  false,
	}
	for status, want := range operable {
		if got := status.Operable(); got != want {
			t.Errorf("%s operable = %v, want %v", status, got, want)
		}
	}
}

func TestIsValidHospitalStatus(t *testing.T) {
	if !IsValidHospitalStatus(HospitalStatusSuspended) {
		t.Error("SUSPENDED should be valid")
	}
	if IsValidHospitalStatus("DELETED") {
		t.Error("unknown status should be invalid")
	}
}
