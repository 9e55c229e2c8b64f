// Package httpapi expone el borde HTTP del servicio: login por password,
// ceremonias WebAuthn y los flujos de reset/confirmación. Es deliberadamente
// fino: resuelve el provider vía la authority, delega, y mapea errores a
// respuestas genéricas.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/aac/internal/authority"
	"github.com/dropDatabas3/aac/internal/metrics"
	"github.com/dropDatabas3/aac/internal/observability/logger"
	passwordprov "github.com/dropDatabas3/aac/internal/provider/password"
	webauthnprov "github.com/dropDatabas3/aac/internal/provider/webauthn"
	"github.com/dropDatabas3/aac/internal/rate"
	"github.com/dropDatabas3/aac/internal/token"
)

// Server agrupa las dependencias de los handlers.
type Server struct {
	Passwords *authority.Authority[*passwordprov.Provider]
	WebAuthn  *authority.Authority[*webauthnprov.Provider]
	Issuer    *token.Issuer
	Limiter   rate.Limiter // opcional
	Metrics   *metrics.Metrics

	log *zap.Logger
}

// New crea el server HTTP con las authorities y el issuer dados.
func New(passwords *authority.Authority[*passwordprov.Provider], wa *authority.Authority[*webauthnprov.Provider], issuer *token.Issuer, limiter rate.Limiter, mx *metrics.Metrics) *Server {
	return &Server{
		Passwords: passwords,
		WebAuthn:  wa,
		Issuer:    issuer,
		Limiter:   limiter,
		Metrics:   mx,
		log:       logger.Named("httpapi"),
	}
}

// Router arma el chi.Mux con todas las rutas montadas.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Post("/v1/auth/login", s.login)
	r.Post("/v1/auth/reset", s.resetStart)
	r.Post("/v1/auth/reset/confirm", s.resetConfirm)
	r.Post("/v1/auth/confirm/start", s.confirmStart)
	r.Post("/v1/auth/confirm", s.confirmAccount)

	r.Post("/v1/webauthn/register/start", s.registerStart)
	r.Post("/v1/webauthn/register/finish", s.registerFinish)
	r.Post("/v1/webauthn/login/start", s.loginStart)
	r.Post("/v1/webauthn/login/finish", s.loginFinish)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// rlOr429 aplica el rate limiter si está configurado. Retorna true si el
// request fue rechazado (ya se escribió la respuesta).
func (s *Server) rlOr429(w http.ResponseWriter, r *http.Request, key string) bool {
	if s.Limiter == nil {
		return false
	}
	res, err := s.Limiter.Allow(r.Context(), key)
	if err != nil {
		// limiter caído no bloquea logins; se loguea y se deja pasar
		s.log.Warn("rate limiter unavailable", logger.Err(err))
		return false
	}
	if res.Allowed {
		return false
	}
	writeRateLimited(w, res.RetryAfter)
	return true
}
