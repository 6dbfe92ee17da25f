package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-api/internal/application/account"
	"github.com/go-verify-api/internal/application/challenge"
	"github.com/go-verify-api/internal/application/twofactor"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/infrastructure/delivery"
	"github.com/go-verify-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-verify-api/internal/infrastructure/jwt"
	"github.com/go-verify-api/internal/infrastructure/smtp"
	"github.com/go-verify-api/internal/infrastructure/sns"
	"github.com/go-verify-api/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo   *dynamo.AccountRepo
	ChallengeRepo *dynamo.ChallengeRepo
	TwoFactorRepo *dynamo.TwoFactorRepo
	Mailer        smtp.Mailer
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
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

	// 5 requests/second, burst of 10 — applied to code-issuing and login endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	policy := challenge.Policy{Digits: cfg.ChallengeDigits, TTL: cfg.ChallengeTTL}
	dispatcher := delivery.NewDispatcher(deps.Mailer, deps.SMSSender)

	issuer := challenge.NewIssuer(challenge.IssuerDeps{
		Accounts:        deps.AccountRepo,
		Artifacts:       deps.ChallengeRepo,
		Delivery:        dispatcher,
		Policy:          policy,
		DeliveryTimeout: cfg.DeliveryTimeout,
	})
	verifier := challenge.NewVerifier(challenge.VerifierDeps{
		Artifacts: deps.ChallengeRepo,
		Secrets:   deps.TwoFactorRepo,
		Policy:    policy,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		AccountRepo: deps.AccountRepo,
		SecretRepo:  deps.TwoFactorRepo,
	})
	twoFactorSvc := twofactor.NewService(twofactor.ServiceDeps{
		Accounts: deps.AccountRepo,
		Secrets:  deps.TwoFactorRepo,
		Verifier: verifier,
		Auth:     accountSvc,
		Issuer:   cfg.TOTPIssuer,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc)
	sessionH := handler.NewSessionHandler(accountSvc, verifier, deps.JWTProvider)
	phoneH := handler.NewContactChangeHandler(issuer, verifier, domain.PurposePhoneChange)
	emailH := handler.NewContactChangeHandler(issuer, verifier, domain.PurposeEmailChange)
	recoveryH := handler.NewPasswordRecoveryHandler(accountSvc, issuer, verifier)
	twoFactorH := handler.NewTwoFactorHandler(twoFactorSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.With(sensitiveRL.Limit).Post("/sessions/login/2fa", sessionH.LoginTwoFactor)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", recoveryH.Action)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/accounts/me", accountH.Me)
			r.With(sensitiveRL.Limit).Post("/phone-change/{action}", phoneH.Action)
			r.With(sensitiveRL.Limit).Post("/email-change/{action}", emailH.Action)
			r.Post("/2fa/enroll", twoFactorH.Enroll)
			r.Post("/2fa/confirm", twoFactorH.Confirm)
			r.Post("/2fa/disable", twoFactorH.Disable)
		})
	})

	return r
}
