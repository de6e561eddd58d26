package routes

import (
	"github.com/labstack/echo/v4"

	"hms/internal/api/middleware"
	"hms/internal/handlers"
)

func setupClinicalRoutes(api *echo.Group, deps Deps, auth *middleware.AuthMiddleware, tenant *middleware.TenantMiddleware) {
	patients := handlers.NewPatientHandler(deps.MainDB)
	prescriptions := handlers.NewPrescriptionHandler(deps.MainDB)
	vitals := handlers.NewVitalHandler(deps.MainDB)
	records := handlers.NewMedicalRecordHandler(deps.MainDB)
	appointments := handlers.NewAppointmentHandler(deps.MainDB)

	perm := func(names ...string) echo.MiddlewareFunc {
		return middleware.RequireAnyPermission(deps.Resolver, names...)
	}
	scope := func(resource string) echo.MiddlewareFunc {
		return middleware.ABACScope(deps.MainDB, resource, "READ")
	}

	p := api.Group("/patients", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	p.POST("", patients.Create, perm("PATIENT:CREATE"))
	p.GET("", patients.List, perm("PATIENT:READ"), scope("PATIENT"))
	p.GET("/export", patients.Export, perm("PATIENT:READ"), scope("PATIENT"))
	p.GET("/:id", patients.Get, perm("PATIENT:READ"), scope("PATIENT"))
	p.PUT("/:id", patients.Update, perm("PATIENT:UPDATE"))

	rx := api.Group("/prescriptions", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	rx.POST("", prescriptions.Create, perm("PRESCRIPTION:CREATE"))
	rx.GET("", prescriptions.List, perm("PRESCRIPTION:READ"), scope("PRESCRIPTION"))
	rx.GET("/:id", prescriptions.Get, perm("PRESCRIPTION:READ"), scope("PRESCRIPTION"))
	rx.PATCH("/:id/status", prescriptions.UpdateStatus, perm("PRESCRIPTION:UPDATE", "PRESCRIPTION:DISPENSE"))

	v := api.Group("/vitals", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	v.POST("", vitals.Record, perm("VITALS:CREATE"))
	v.GET("/patient/:patientId", vitals.ListForPatient, perm("VITALS:READ"), scope("VITALS"))
	v.GET("/patient/:patientId/latest", vitals.Latest, perm("VITALS:READ"), scope("VITALS"))
	v.GET("/:id", vitals.Get, perm("VITALS:READ"), scope("VITALS"))
	v.PUT("/:id", vitals.Update, perm("VITALS:UPDATE"))

	mr := api.Group("/medical-records", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	mr.POST("", records.Create, perm("MEDICAL_RECORD:CREATE"))
	mr.GET("/patient/:patientId", records.ListForPatient, perm("MEDICAL_RECORD:READ"))
	mr.GET("/patient/:patientId/latest", records.Latest, perm("MEDICAL_RECORD:READ"))
	mr.GET("/:id", records.Get, perm("MEDICAL_RECORD:READ"))
	mr.PUT("/:id", records.Update, perm("MEDICAL_RECORD:UPDATE"))

	ap := api.Group("/appointments", auth.Middleware(), tenant.Middleware(), middleware.RequireTenant())
	ap.POST("", appointments.Create, perm("APPOINTMENT:CREATE"))
	ap.GET("", appointments.List, perm("APPOINTMENT:READ"))
	ap.PATCH("/:id/status", appointments.UpdateStatus, perm("APPOINTMENT:UPDATE"))
}
