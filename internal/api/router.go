package api

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/ocandle/marketplace/internal/api/handler"
	"github.com/ocandle/marketplace/internal/api/middleware"
	"github.com/ocandle/marketplace/internal/core/domain"
	"github.com/ocandle/marketplace/internal/core/ports"
)

const (
	bodyLimit        = "30M"
	metricsSubsystem = "http"

	authWindow    = 15 * time.Minute
	registerQuota = 5
	loginQuota    = 10
)

// Services are the use cases the HTTP layer exposes.
type Services struct {
	Auth      ports.AuthService
	Catalog   ports.CatalogService
	Orders    ports.OrderService
	Directory ports.DirectoryService
}

// RouterConfig carries the infrastructure the router needs besides services.
type RouterConfig struct {
	Log            zerolog.Logger
	Development    bool
	AllowedOrigins []string
	// RequireVerifiedSellers blocks unverified sellers from creating listings.
	RequireVerifiedSellers bool
	RateLimitStore         ports.RateLimitStore
	Media                  handler.MediaReader
	ReadinessChecks        []handler.DependencyCheck
	// Metrics defaults to the process-wide Prometheus registry.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log, cfg.Development)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestContextLogger(cfg.Log))
	e.Use(middleware.AccessLog())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  metricsSubsystem,
		Registerer: registerer(cfg.Metrics),
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	productHandler := handler.NewProductHandler(svc.Catalog, svc.Directory)
	orderHandler := handler.NewOrderHandler(svc.Orders)
	userHandler := handler.NewUserHandler(svc.Directory)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(cfg.ReadinessChecks...)

	authenticate := middleware.Authenticate(svc.Auth)
	optionalAuth := middleware.OptionalAuthenticate(svc.Auth)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer(cfg.Metrics)}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if cfg.Media != nil {
		e.GET("/media/*", handler.NewMediaHandler(cfg.Media).Serve)
	}

	api := e.Group("/api")
	api.GET("/health", healthHandler.Liveness)
	api.GET("/health/ready", readinessHandler.Readiness)

	// --- Auth routes ---
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register, middleware.RateLimit(middleware.RateLimitConfig{
		Scope: "register", Max: registerQuota, Window: authWindow, Store: cfg.RateLimitStore, Log: cfg.Log,
	}))
	auth.POST("/login", authHandler.Login, middleware.RateLimit(middleware.RateLimitConfig{
		Scope: "login", Max: loginQuota, Window: authWindow, Store: cfg.RateLimitStore, Log: cfg.Log,
	}))
	auth.POST("/logout", authHandler.Logout, authenticate)
	auth.GET("/me", authHandler.Me, authenticate)
	auth.PUT("/profile", authHandler.UpdateProfile, authenticate)
	auth.PUT("/change-password", authHandler.ChangePassword, authenticate)
	auth.DELETE("/account", authHandler.DeleteAccount, authenticate)

	// --- Product routes ---
	// Static segments are registered before /:id.
	owned := middleware.CheckOwnership("id", productHandler.LoadOwned)
	manage := middleware.Require(domain.CapManageListings)
	createGuards := []echo.MiddlewareFunc{authenticate, manage}
	if cfg.RequireVerifiedSellers {
		createGuards = append(createGuards, middleware.RequireVerified())
	}

	products := api.Group("/products")
	products.GET("", productHandler.List)
	products.GET("/categories", productHandler.Categories)
	products.GET("/seller/:sellerId", productHandler.BySeller)
	products.GET("/:id", productHandler.Get, optionalAuth)
	products.POST("", productHandler.Create, createGuards...)
	products.PUT("/:id", productHandler.Update, authenticate, manage, owned)
	products.DELETE("/:id", productHandler.Delete, authenticate, manage, owned)
	products.PUT("/:id/stock", productHandler.UpdateStock, authenticate, manage, owned)
	products.POST("/:id/reviews", productHandler.AddReview, authenticate, middleware.Require(domain.CapReview))

	// --- Order routes ---
	// Party checks (buyer vs seller of a given order) happen in the service.
	orders := api.Group("/orders", authenticate)
	orders.POST("", orderHandler.Create, middleware.Require(domain.CapPlaceOrders))
	orders.GET("", orderHandler.List)
	orders.GET("/:id", orderHandler.Get)
	orders.PUT("/:id/status", orderHandler.UpdateStatus, middleware.Require(domain.CapManageSales))
	orders.POST("/:id/payment", orderHandler.Pay)
	orders.POST("/:id/cancel", orderHandler.Cancel)
	orders.POST("/:id/rating", orderHandler.Rate)

	// --- Directory routes ---
	users := api.Group("/users")
	users.GET("/vendors", userHandler.ListVendors)
	users.GET("/vendors/:id", userHandler.VendorProfile)
	users.GET("/vendors/:id/products", userHandler.VendorProducts)
	users.GET("/search/vendors", userHandler.SearchVendors)
	users.GET("/featured/vendors", userHandler.FeaturedVendors)
	users.GET("/profile", userHandler.Profile, authenticate)
	users.PUT("/profile", authHandler.UpdateProfile, authenticate, middleware.Authorize(domain.RoleSeller))

	return e
}

func registerer(r *prometheus.Registry) prometheus.Registerer {
	if r == nil {
		return prometheus.DefaultRegisterer
	}
	return r
}

func gatherer(r *prometheus.Registry) prometheus.Gatherer {
	if r == nil {
		return prometheus.DefaultGatherer
	}
	return r
}
