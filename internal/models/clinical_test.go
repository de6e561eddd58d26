package models

import "testing"

func TestVitalBMIDerivation(t *testing.T) {
	v := Vital{Weight: 70, Height: 175}
	if err := v.BeforeSave(nil); err != nil {
		t.Fatal(err)
	}
	if v.BMI != 22.85 {
		t.Errorf("BMI = %v, want 22.85", v.BMI)
	}

	// missing height leaves BMI untouched
	v = Vital{Weight: 70}
	if err := v.BeforeSave(nil); err != nil {
		t.Fatal(err)
	}
	if v.BMI != 0 {
		t.Errorf("BMI = %v, want 0 when height is missing", v.BMI)
	}
}

func TestUserCanLogin(t *testing.T) {
	cases := map[UserStatus]bool{
		UserStatusActive:          true,
		UserStatusPasswordExpired: true,
		UserStatusInactive:        false,
		UserStatusLocked:          false,
	}
	for status, want := range cases {
		u := User{Status: status}
		if got := u.CanLogin(); got != want {
			t.Errorf("%s can login = %v, want %v", status, got, want)
		}
	}
}
