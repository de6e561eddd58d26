package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hms/internal/config"
	"hms/internal/db"
	"hms/internal/models"
	"hms/internal/rbac"
)

type staticCatalog struct {
	roles map[string]models.Role
}

func (s *staticCatalog) RoleByID(ctx context.Context, id string) (*models.Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return nil, rbac.ErrRoleNotFound
	}
	return &role, nil
}

func (s *staticCatalog) RolesByIDs(ctx context.Context, ids []string) ([]models.Role, error) {
	var out []models.Role
	for _, id := range ids {
		if role, ok := s.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func newMockMain(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	main, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return main, mock
}

func docRole() map[string]models.Role {
	role := models.Role{Name: models.RoleDoctor}
	role.ID = "role-doc"
	return map[string]models.Role{"role-doc": role}
}

func TestFindByEmail_GlobalUserHit(t *testing.T) {
	main, mock := newMockMain(t)
	resolver := NewResolver(main, db.NewRegistry(config.DatabaseConfig{}), &staticCatalog{roles: docRole()})

	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WithArgs("admin@platform.io", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_ids", "status"}).
			AddRow("u1", "admin@platform.io", []byte(`["role-doc"]`), "ACTIVE"))

	ident, err := resolver.FindByEmail(context.Background(), "admin@platform.io")
	if err != nil {
		t.Fatal(err)
	}
	if ident.User.ID != "u1" {
		t.Errorf("user id = %s, want u1", ident.User.ID)
	}
	if ident.HospitalID != "" {
		t.Errorf("global user must have no hospital, got %q", ident.HospitalID)
	}
	if len(ident.Roles) != 1 || ident.Roles[0].Name != models.RoleDoctor {
		t.Errorf("hydrated roles = %v", ident.Roles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindByEmail_UnknownRolesDegradeToNone(t *testing.T) {
	main, mock := newMockMain(t)
	resolver := NewResolver(main, db.NewRegistry(config.DatabaseConfig{}), &staticCatalog{roles: map[string]models.Role{}})

	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_ids", "status"}).
			AddRow("u1", "someone@platform.io", []byte(`["ghost-role"]`), "ACTIVE"))

	ident, err := resolver.FindByEmail(context.Background(), "someone@platform.io")
	if err != nil {
		t.Fatal(err)
	}
	if len(ident.Roles) != 0 {
		t.Errorf("unresolvable roles must hydrate to none, got %v", ident.Roles)
	}
}

func TestFindByEmail_NotFoundAnywhere(t *testing.T) {
	main, mock := newMockMain(t)
	resolver := NewResolver(main, db.NewRegistry(config.DatabaseConfig{}), &staticCatalog{})

	// main store miss, directory miss, no operable hospitals to scan
	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .+ FROM "directory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := resolver.FindByEmail(context.Background(), "nobody@nowhere.io")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindByID_DirectoryIndexAvoidsTenantScan(t *testing.T) {
	main, mock := newMockMain(t)
	tenant, tenantMock := newMockMain(t)

	registry := db.NewRegistry(config.DatabaseConfig{})
	registry.Put("t2", tenant)
	resolver := NewResolver(main, registry, &staticCatalog{roles: docRole()})

	// not a global user; no hint on the token
	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// the index remembers which tenant holds the account
	mock.ExpectQuery(`SELECT .+ FROM "directory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "user_id", "hospital_id", "tenant_id"}).
			AddRow("de1", "ada@citygeneral.org", "u9", "hosp-2", "t2"))
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "tenant_id"}).
			AddRow("hosp-2", "ACTIVE", "t2"))

	tenantMock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_ids", "status"}).
			AddRow("u9", "ada@citygeneral.org", []byte(`["role-doc"]`), "ACTIVE"))

	// index refresh after the hit
	mock.ExpectQuery(`SELECT .+ FROM "directory_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "user_id", "hospital_id", "tenant_id"}).
			AddRow("de1", "ada@citygeneral.org", "u9", "hosp-2", "t2"))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "directory_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ident, err := resolver.FindByID(context.Background(), "u9", "")
	if err != nil {
		t.Fatal(err)
	}
	if ident.User.ID != "u9" {
		t.Errorf("user id = %s, want u9", ident.User.ID)
	}
	if ident.HospitalID != "hosp-2" {
		t.Errorf("hospital = %q, want hosp-2", ident.HospitalID)
	}
	// no cross-tenant fan-out: the hospitals status scan never runs
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
	if err := tenantMock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFindByID_GlobalUserHit(t *testing.T) {
	main, mock := newMockMain(t)
	resolver := NewResolver(main, db.NewRegistry(config.DatabaseConfig{}), &staticCatalog{roles: docRole()})

	mock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role_ids", "status"}).
			AddRow("u1", "admin@platform.io", []byte(`[]`), "ACTIVE"))

	ident, err := resolver.FindByID(context.Background(), "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if ident.User.ID != "u1" {
		t.Errorf("user id = %s", ident.User.ID)
	}
}
