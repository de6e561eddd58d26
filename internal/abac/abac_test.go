package abac

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hms/internal/models"
)

func newMockStore(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	store, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return store, mock
}

// renderScope builds the SQL a scope would produce against the patients
// table without executing it.
func renderScope(t *testing.T, store *gorm.DB, scope func(*gorm.DB) *gorm.DB) string {
	t.Helper()
	var patients []models.Patient
	tx := store.Session(&gorm.Session{DryRun: true}).
		Model(&models.Patient{}).
		Scopes(scope).
		Find(&patients)
	return tx.Statement.SQL.String()
}

func doctorCaller() Caller {
	return Caller{
		UserID:     "doc-1",
		HospitalID: "hosp-1",
		Department: "Cardiology",
		Roles:      []models.RoleRef{{ID: "r1", Name: models.RoleDoctor}},
	}
}

func TestPatientScope_DoctorAssignmentOrDepartment(t *testing.T) {
	store, _ := newMockStore(t)
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", doctorCaller())

	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}
	sql := renderScope(t, store, decision.Scope)
	for _, fragment := range []string{"assigned_doctor_id", "department", "hospital_id"} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("scope SQL %q missing %s", sql, fragment)
		}
	}
	if strings.Contains(sql, "assigned_nurse_id") {
		t.Errorf("doctor scope must not filter on nurse assignment: %q", sql)
	}
}

func TestPatientScope_NurseUsesNurseAssignment(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID:     "nurse-1",
		HospitalID: "hosp-1",
		Department: "ICU",
		Roles:      []models.RoleRef{{ID: "r2", Name: models.RoleNurse}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", caller)

	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}
	sql := renderScope(t, store, decision.Scope)
	if !strings.Contains(sql, "assigned_nurse_id") {
		t.Errorf("nurse scope missing nurse assignment: %q", sql)
	}
}

func TestPatientScope_DoctorWithoutDepartmentUsesAssignmentOnly(t *testing.T) {
	store, _ := newMockStore(t)
	caller := doctorCaller()
	caller.Department = ""
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", caller)

	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}
	sql := renderScope(t, store, decision.Scope)
	if !strings.Contains(sql, "assigned_doctor_id") {
		t.Errorf("scope missing assignment filter: %q", sql)
	}
	if strings.Contains(sql, "department") {
		t.Errorf("department clause must be omitted for a department-less caller: %q", sql)
	}
}

func TestPatientScope_OtherStaffScopedToDepartment(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID:     "rec-1",
		HospitalID: "hosp-1",
		Department: "Front Desk",
		Roles:      []models.RoleRef{{ID: "r5", Name: models.RoleReceptionist}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", caller)

	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}
	sql := renderScope(t, store, decision.Scope)
	if !strings.Contains(sql, "department") {
		t.Errorf("scope missing department filter: %q", sql)
	}
	if strings.Contains(sql, "assigned_doctor_id") || strings.Contains(sql, "assigned_nurse_id") {
		t.Errorf("non-clinical staff must not filter on assignment: %q", sql)
	}
}

func TestPatientScope_SuperAdminUnrestricted(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID:     "root-1",
		Department: "Platform",
		Roles:      []models.RoleRef{{ID: "r0", Name: models.RoleSuperAdmin}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", caller)
	if decision.Kind != Unrestricted {
		t.Errorf("kind = %v, want Unrestricted", decision.Kind)
	}
}

func TestPatientScope_AdminUnrestricted(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID: "admin-1",
		Roles:  []models.RoleRef{{ID: "r3", Name: models.RoleHospitalAdmin}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "READ", caller)
	if decision.Kind != Unrestricted {
		t.Errorf("kind = %v, want Unrestricted", decision.Kind)
	}
}

func TestCompute_WritesAreUnrestricted(t *testing.T) {
	store, _ := newMockStore(t)
	decision := NewEvaluator(store).Compute(context.Background(), "PATIENT", "UPDATE", doctorCaller())
	if decision.Kind != Unrestricted {
		t.Errorf("kind = %v, want Unrestricted for non-read actions", decision.Kind)
	}
}

func TestPrescriptionScope_DoctorAuthoredOnly(t *testing.T) {
	store, _ := newMockStore(t)
	decision := NewEvaluator(store).Compute(context.Background(), "PRESCRIPTION", "READ", doctorCaller())

	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}
	sql := renderScope(t, store, decision.Scope)
	if !strings.Contains(sql, "doctor_id") {
		t.Errorf("prescription scope missing author filter: %q", sql)
	}
}

func TestPrescriptionScope_EveryStaffRoleIsAuthorScoped(t *testing.T) {
	store, _ := newMockStore(t)
	for _, role := range []string{
		models.RoleHospitalAdmin,
		models.RoleNurse,
		models.RolePharmacist,
		models.RoleReceptionist,
	} {
		caller := Caller{
			UserID:     "staff-1",
			HospitalID: "hosp-1",
			Roles:      []models.RoleRef{{ID: "r-" + role, Name: role}},
		}
		decision := NewEvaluator(store).Compute(context.Background(), "PRESCRIPTION", "READ", caller)
		if decision.Kind != Filtered {
			t.Fatalf("%s: kind = %v, want Filtered", role, decision.Kind)
		}
		sql := renderScope(t, store, decision.Scope)
		if !strings.Contains(sql, "doctor_id") {
			t.Errorf("%s: prescription scope missing author filter: %q", role, sql)
		}
	}
}

func TestPrescriptionScope_SuperAdminUnrestricted(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID: "root-1",
		Roles:  []models.RoleRef{{ID: "r0", Name: models.RoleSuperAdmin}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "PRESCRIPTION", "READ", caller)
	if decision.Kind != Unrestricted {
		t.Errorf("kind = %v, want Unrestricted", decision.Kind)
	}
}

func TestVitalScope_EmptyReachableSetDenies(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM "patients"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	decision := NewEvaluator(store).Compute(context.Background(), "VITALS", "READ", doctorCaller())
	if decision.Kind != Denied {
		t.Errorf("kind = %v, want Denied when no patients are reachable", decision.Kind)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVitalScope_ReachablePatientsYieldInFilter(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM "patients"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pat-1").AddRow("pat-2"))

	decision := NewEvaluator(store).Compute(context.Background(), "VITALS", "READ", doctorCaller())
	if decision.Kind != Filtered {
		t.Fatalf("kind = %v, want Filtered", decision.Kind)
	}

	var vitals []models.Vital
	tx := store.Session(&gorm.Session{DryRun: true}).
		Model(&models.Vital{}).
		Scopes(decision.Scope).
		Find(&vitals)
	sql := tx.Statement.SQL.String()
	if !strings.Contains(sql, "patient_id IN") {
		t.Errorf("vital scope missing IN filter: %q", sql)
	}
}

func TestVitalScope_AdminUnrestricted(t *testing.T) {
	store, _ := newMockStore(t)
	caller := Caller{
		UserID: "admin-1",
		Roles:  []models.RoleRef{{ID: "r3", Name: models.RoleHospitalAdmin}},
	}
	decision := NewEvaluator(store).Compute(context.Background(), "VITALS", "READ", caller)
	if decision.Kind != Unrestricted {
		t.Errorf("kind = %v, want Unrestricted", decision.Kind)
	}
}

func TestVitalScope_QueryFailureIsError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT .+ FROM "patients"`).
		WillReturnError(errClosed{})

	decision := NewEvaluator(store).Compute(context.Background(), "VITALS", "READ", doctorCaller())
	if decision.Kind != Error {
		t.Errorf("kind = %v, want Error", decision.Kind)
	}
	if decision.Err == nil {
		t.Error("Error decision must carry the cause")
	}
}

type errClosed struct{}

func (errClosed) Error() string { return "connection closed" }
