package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hms/internal/api/validator"
	"hms/internal/config"
	"hms/internal/db"
	"hms/internal/rbac"
)

type recordingMailer struct {
	verifications int
	credentials   int
	welcomes      int
	lastPassword  string
	welcomeErr    error
}

func (m *recordingMailer) SendVerificationMail(to, hospitalName, tenantID, token string) error {
	m.verifications++
	return nil
}

func (m *recordingMailer) SendCredentialsMail(to, hospitalName, email, password string) error {
	m.credentials++
	m.lastPassword = password
	return nil
}

func (m *recordingMailer) SendStatusChangeMail(to, hospitalName, status string) error { return nil }
func (m *recordingMailer) SendPasswordResetMail(to, token string) error               { return nil }
func (m *recordingMailer) SendWelcomeMail(to, firstName, username, password string) error {
	m.welcomes++
	return m.welcomeErr
}

func newMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return conn, mock
}

func newTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = validator.NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

const registerBody = `{
	"name": "City General",
	"licenseNumber": "LIC-1",
	"address": "1 Main St",
	"phone": "555-0100",
	"email": "contact@citygeneral.org"
}`

func TestHospitalRegister_DuplicateLicense(t *testing.T) {
	main, mock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, db.NewRegistry(config.DatabaseConfig{}), rbac.NewGormCatalog(main), mailer)

	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "license_number"}).AddRow("h1", "LIC-1"))

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/hospitals/register", registerBody)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["status"])
	assert.Equal(t, 0, mailer.verifications)
}

func TestHospitalRegister_ProvisionsTenantWithheldCredentials(t *testing.T) {
	main, mock := newMockGorm(t)
	tenant, tenantMock := newMockGorm(t)

	registry := db.NewRegistry(config.DatabaseConfig{})
	registry.SetOpener(func(string) (*gorm.DB, error) { return tenant, nil })

	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, registry, rbac.NewGormCatalog(main), mailer)

	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO "hospitals"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`CREATE DATABASE "hms_`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM "roles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "level"}).
			AddRow("role-admin", "HOSPITAL_ADMIN", 2))
	mock.ExpectQuery(`SELECT .+ FROM "role_permissions"`).
		WillReturnRows(sqlmock.NewRows([]string{"role_id", "permission_id"}))

	tenantMock.ExpectExec(`INSERT INTO "users"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`INSERT INTO "directory_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/hospitals/register", registerBody)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, mailer.verifications)
	assert.Equal(t, 0, mailer.credentials, "credentials are withheld until verification")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["status"])

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, tenantMock.ExpectationsWereMet())
}

func verifyContext(t *testing.T, tenantID, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := newTestContext(t, http.MethodGet, "/api/v1/hospitals/verify/"+tenantID+"/"+token, "")
	c.SetParamNames("tenantId", "token")
	c.SetParamValues(tenantID, token)
	return c, rec
}

func TestHospitalVerify_MailsCredentialsOnce(t *testing.T) {
	main, mock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, db.NewRegistry(config.DatabaseConfig{}), rbac.NewGormCatalog(main), mailer)

	expiry := time.Now().Add(time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "status", "verification_token", "token_expiry", "tenant_id"}).
			AddRow("h1", "City General", "contact@citygeneral.org", "PENDING", "sometoken", expiry, "hms_deadbeef"))
	mock.ExpectExec(`UPDATE "hospitals"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := verifyContext(t, "hms_deadbeef", "sometoken")

	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, mailer.credentials, "administrator credentials are mailed exactly once")
	assert.Equal(t, defaultAdminPassword, mailer.lastPassword)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHospitalVerify_AlreadyVerifiedIsIdempotent(t *testing.T) {
	main, mock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, db.NewRegistry(config.DatabaseConfig{}), rbac.NewGormCatalog(main), mailer)

	// the consumed token is cleared on transition
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "verification_token", "tenant_id"}).
			AddRow("h1", "VERIFIED", "", "hms_deadbeef"))

	c, rec := verifyContext(t, "hms_deadbeef", "sometoken")

	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mailer.credentials, "credentials must never be re-sent")
}

func TestHospitalVerify_WrongToken(t *testing.T) {
	main, mock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, db.NewRegistry(config.DatabaseConfig{}), rbac.NewGormCatalog(main), mailer)

	expiry := time.Now().Add(time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "verification_token", "token_expiry", "tenant_id"}).
			AddRow("h1", "PENDING", "realtoken", expiry, "hms_deadbeef"))

	c, rec := verifyContext(t, "hms_deadbeef", "guessedtoken")

	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mailer.credentials)
}

func TestHospitalVerify_ExpiredToken(t *testing.T) {
	main, mock := newMockGorm(t)
	mailer := &recordingMailer{}
	h := NewHospitalHandler(main, db.NewRegistry(config.DatabaseConfig{}), rbac.NewGormCatalog(main), mailer)

	expired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM "hospitals"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "verification_token", "token_expiry", "tenant_id"}).
			AddRow("h1", "PENDING", "sometoken", expired, "hms_deadbeef"))

	c, rec := verifyContext(t, "hms_deadbeef", "sometoken")

	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mailer.credentials)
}
