package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"hms/internal/api/validator"
	"hms/internal/config"
	"hms/internal/routes"

	console "hms/internal/utils/logger"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config
	db     *gorm.DB
}

var log = console.New("API-Server")

func NewServer(cfg *config.Config, mainDB *gorm.DB, deps routes.Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Validator = validator.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Server.FrontendURL},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))))

	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:   e,
		config: cfg,
		db:     mainDB,
	}

	e.GET("/health", s.healthCheck)
	routes.Setup(e, deps)

	return s
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// customHTTPErrorHandler folds every error into the status envelope.
func customHTTPErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	body := map[string]interface{}{
		"status":  0,
		"message": http.StatusText(code),
	}

	switch e := err.(type) {
	case *echo.HTTPError:
		code = e.Code
		body["message"] = fmt.Sprintf("%v", e.Message)
	case validator.ValidationErrors:
		code = http.StatusBadRequest
		body["message"] = "Validation failed"
		body["errors"] = e.Fields()
	default:
		// internal details stay in the log
		log.Warn("unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		body["message"] = "Internal server error"
	}

	if !c.Response().Committed {
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, body)
		}
		if writeErr != nil {
			log.Warn("writing error response: %v", writeErr)
		}
	}
}
