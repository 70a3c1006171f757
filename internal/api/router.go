package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/librario/lending-api/docs"
	"github.com/librario/lending-api/internal/api/handler"
	"github.com/librario/lending-api/internal/api/middleware"
	"github.com/librario/lending-api/internal/core/domain"
	"github.com/librario/lending-api/internal/core/ports"
	"github.com/librario/lending-api/internal/infrastructure/http/handlers"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Auth    ports.AuthService
	Lending ports.LendingService
	Users   ports.UserService
	// Checks are pinged by the readiness probe.
	Checks []handlers.DependencyCheck
	Log    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(middleware.Metrics())

	authHandler := handler.NewAuthHandler(deps.Auth)
	bookHandler := handler.NewBookHandler(deps.Lending)
	userHandler := handler.NewUserHandler(deps.Users)

	authn := middleware.Auth(deps.Auth)
	anyone := middleware.RBAC()
	members := middleware.RBAC(domain.RoleAdmin, domain.RoleMember)
	admins := middleware.RBAC(domain.RoleAdmin)

	// --- Auth ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/signin", authHandler.Signin)
	auth.POST("/logout", authHandler.Logout, authn, anyone)

	// --- Books ---
	books := e.Group("/books", authn)
	books.GET("", bookHandler.ListAvailable, members)
	books.GET("/all", bookHandler.ListAll, admins)
	books.GET("/borrowers", bookHandler.Borrowers, admins)
	books.GET("/:id", bookHandler.Get, members)
	books.POST("", bookHandler.Create, admins)
	books.PATCH("/:id", bookHandler.Edit, admins)
	books.DELETE("/:id", bookHandler.Delete, admins)
	books.PATCH("/:id/borrow", bookHandler.Borrow, members)
	books.PATCH("/:id/return", bookHandler.Return, members)

	// --- Users ---
	users := e.Group("/users", authn)
	users.GET("/me", userHandler.Me, anyone)
	users.PATCH("/me", userHandler.UpdateMe, anyone)
	users.PATCH("/:id/role", userHandler.ChangeRole, admins)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewReadinessHandler(deps.Checks...).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/docs/*", echoSwagger.WrapHandler)

	return e
}
