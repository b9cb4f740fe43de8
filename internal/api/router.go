package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/shopsence/user-service/docs"
	"github.com/shopsence/user-service/internal/api/handler"
	"github.com/shopsence/user-service/internal/api/middleware"
	"github.com/shopsence/user-service/internal/core/ports"
)

const bodyLimit = "10M"

// Deps carries everything the router needs. Revoker, Reporter and Registry
// are optional; a nil Registry uses the default Prometheus registry.
type Deps struct {
	Auth     ports.AuthService
	Accounts ports.AccountService
	Tokens   ports.TokenVerifier
	Revoker  ports.TokenRevoker
	Reporter ErrorReporter
	Health   map[string]handler.Pinger
	Registry *prometheus.Registry

	CORSOrigins    []string
	Production     bool
	MaxAvatarBytes int64
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.Reporter)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     d.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "accounts",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	cookies := handler.NewCookiePolicy(d.Production)
	authHandler := handler.NewAuthHandler(d.Auth, cookies, d.MaxAvatarBytes)
	accountHandler := handler.NewAccountHandler(d.Accounts, cookies, d.MaxAvatarBytes)
	healthHandler := handler.NewHealthHandler(d.Health)

	requireAuth := middleware.Auth(middleware.AuthConfig{
		Verifier: d.Tokens,
		Users:    d.Accounts,
		Revoker:  d.Revoker,
		Log:      d.Log,
	})

	// --- Users ---
	users := e.Group("/api/v1/users")
	users.POST("/register", authHandler.Register)
	users.GET("/verify-email/:id/:token", authHandler.VerifyEmail)
	users.POST("/login", authHandler.Login)
	users.POST("/refresh-token", authHandler.RefreshToken)

	users.GET("/logout", authHandler.Logout, requireAuth)
	users.POST("/update-password", authHandler.UpdatePassword, requireAuth)
	users.GET("/me", accountHandler.Me, requireAuth)
	users.POST("/update-account-details", accountHandler.UpdateDetails, requireAuth)
	users.GET("/delete-me", accountHandler.Delete, requireAuth)
	users.POST("/update-avatar", accountHandler.UpdateAvatar, requireAuth)

	// --- Operational ---
	e.GET("/", healthHandler.Root)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
