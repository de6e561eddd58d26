package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hms/internal/models"
	"hms/internal/rbac"
)

const createUserBody = `{
	"firstName": "Ada",
	"lastName": "Okafor",
	"email": "ada.okafor@citygeneral.org",
	"password": "Str0ng!Pass",
	"roleIds": ["6ba7b810-9dad-11d1-80b4-00c04fd430c8"],
	"department": "Cardiology"
}`

func createUserContext(t *testing.T, tenant *gorm.DB) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := newTestContext(t, http.MethodPost, "/api/v1/users", createUserBody)

	hospital := &models.Hospital{Name: "City General", Email: "contact@citygeneral.org"}
	hospital.ID = "h1"
	c.Set("hospital", hospital)
	c.Set("tenantStore", tenant)
	return c, rec
}

func expectUserCreation(mainMock, tenantMock sqlmock.Sqlmock) {
	mainMock.ExpectQuery(`SELECT .+ FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "level"}).
			AddRow("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "DOCTOR", 3))
	mainMock.ExpectQuery(`SELECT .+ FROM "role_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "permission_id"}))

	// duplicate check, then username collision check, then the insert
	tenantMock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	tenantMock.ExpectQuery(`SELECT .+ FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	tenantMock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestUserCreate_SendsWelcomeMail(t *testing.T) {
	main, mainMock := newMockGorm(t)
	tenant, tenantMock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewUserHandler(rbac.NewGormCatalog(main), mailer)

	expectUserCreation(mainMock, tenantMock)
	c, rec := createUserContext(t, tenant)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, mailer.welcomes)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["status"])
	assert.Equal(t, "User created", body["message"])

	assert.NoError(t, mainMock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func TestUserCreate_WelcomeMailFailureIsSurfacedNotFatal(t *testing.T) {
	main, mainMock := newMockGorm(t)
	tenant, tenantMock := newMockGorm(t)
	mailer := &recordingMailer{welcomeErr: errors.New("smtp: connection refused")}
	h := NewUserHandler(rbac.NewGormCatalog(main), mailer)

	expectUserCreation(mainMock, tenantMock)
	c, rec := createUserContext(t, tenant)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code, "the account exists; the admin holds the password")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["status"])
	assert.Contains(t, body["message"], "welcome mail could not be delivered")

	assert.NoError(t, tenantMock.ExpectationsWereMet())
}
