// Package metrics define los contadores Prometheus del core de autenticación.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics agrupa los collectors del core. Se registra una sola vez sobre un
// registry propio que el comando serve expone en /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// LoginAttempts cuenta verificaciones de credenciales por authority y outcome
	// ("success" | "failure"). El outcome no distingue causas, igual que el error
	// que recibe el caller.
	LoginAttempts *prometheus.CounterVec

	// ProviderCache cuenta eventos del cache de providers ("hit" | "miss" | "load_error" | "eviction").
	ProviderCache *prometheus.CounterVec

	// Ceremonies cuenta ceremonias WebAuthn por fase ("registration" | "login")
	// y outcome ("success" | "failure" | "expired").
	Ceremonies *prometheus.CounterVec

	// ResetRequests cuenta pedidos y confirmaciones de reset ("requested" | "confirmed" | "rejected").
	ResetRequests *prometheus.CounterVec
}

// New crea y registra los collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aac",
			Name:      "login_attempts_total",
			Help:      "Credential verifications by authority and outcome.",
		}, []string{"authority", "outcome"}),
		ProviderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aac",
			Name:      "provider_cache_events_total",
			Help:      "Provider cache events.",
		}, []string{"authority", "event"}),
		Ceremonies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aac",
			Name:      "webauthn_ceremonies_total",
			Help:      "WebAuthn ceremonies by phase and outcome.",
		}, []string{"phase", "outcome"}),
		ResetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aac",
			Name:      "password_reset_events_total",
			Help:      "Password reset events.",
		}, []string{"event"}),
	}
	reg.MustRegister(
		m.LoginAttempts,
		m.ProviderCache,
		m.Ceremonies,
		m.ResetRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Nop retorna métricas registradas en un registry descartable, para tests y
// wiring opcional.
func Nop() *Metrics { return New() }
