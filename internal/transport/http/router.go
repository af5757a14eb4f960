package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/homehive/homehive-api/internal/application/auth"
	"github.com/homehive/homehive-api/internal/application/notification"
	"github.com/homehive/homehive-api/internal/application/otp"
	"github.com/homehive/homehive-api/internal/application/user"
	"github.com/homehive/homehive-api/internal/config"
	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/infrastructure/dispatch"
	"github.com/homehive/homehive-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/homehive/homehive-api/internal/infrastructure/jwt"
	s3infra "github.com/homehive/homehive-api/internal/infrastructure/s3"
	"github.com/homehive/homehive-api/internal/infrastructure/smtp"
	"github.com/homehive/homehive-api/internal/infrastructure/sns"
	"github.com/homehive/homehive-api/internal/pkg/vtoken"
	"github.com/homehive/homehive-api/internal/transport/http/handler"
	appmiddleware "github.com/homehive/homehive-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	EmailOTPRepo     *dynamo.OTPRepo
	PhoneOTPRepo     *dynamo.OTPRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	JWTProvider      *jwtinfra.Provider
	TokenCodec       *vtoken.Codec
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 on sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpMgr := otp.NewManager(
		deps.EmailOTPRepo,
		deps.PhoneOTPRepo,
		dispatch.NewEmailSender(deps.Mailer),
		dispatch.NewSMSSender(deps.SMSSender),
	)
	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:         deps.UserRepo,
		OTPManager:       otpMgr,
		Codec:            deps.TokenCodec,
		TokenIssuer:      deps.JWTProvider,
		NotificationRepo: deps.NotificationRepo,
		SyntheticDomain:  cfg.SyntheticEmailDomain,
	})
	userSvc := user.NewService(deps.UserRepo, deps.S3Store)
	notifSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/verify", authH.Verify)
		r.With(sensitiveRL.Limit).Post("/auth/resend", authH.Resend)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Post("/users/me/password", userH.ChangePassword)
			r.Post("/users/me/avatar", userH.UploadAvatar)
			r.Get("/users/{id}/avatar", userH.GetAvatar)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)
			})
		})
	})

	return r
}
