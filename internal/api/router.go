// Package api assembles the development auth server: the fixed three-endpoint
// contract the mobile client consumes, plus health probes, metrics, and a
// swagger UI.
package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ventamovil/session-core/internal/api/handler"
	"github.com/ventamovil/session-core/internal/api/middleware"
	"github.com/ventamovil/session-core/internal/stubauth"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// db may be nil when the server runs on the in-memory account directory.
func NewRouter(svc *stubauth.Service, db *mongo.Database, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("authstub"))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(svc)
	authMiddleware := middleware.Auth(svc)

	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)
	e.GET("/auth/profile", authHandler.Profile, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
