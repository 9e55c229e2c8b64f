package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/aac/internal/authority"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/email"
	"github.com/dropDatabas3/aac/internal/httpapi"
	"github.com/dropDatabas3/aac/internal/metrics"
	passwordprov "github.com/dropDatabas3/aac/internal/provider/password"
	webauthnprov "github.com/dropDatabas3/aac/internal/provider/webauthn"
	"github.com/dropDatabas3/aac/internal/rate"
	pwd "github.com/dropDatabas3/aac/internal/security/password"
	"github.com/dropDatabas3/aac/internal/store/memory"
	"github.com/dropDatabas3/aac/internal/token"
)

type env struct {
	store     *memory.Store
	sender    *captureSender
	server    *httptest.Server
	issuer    *token.Issuer
	passwords *authority.Authority[*passwordprov.Provider]
}

type captureSender struct {
	resetKeys   []string
	confirmKeys []string
}

func (s *captureSender) SendResetKey(_ context.Context, _ *repository.Account, key, _ string) error {
	s.resetKeys = append(s.resetKeys, key)
	return nil
}

func (s *captureSender) SendConfirmationKey(_ context.Context, _ *repository.Account, key, _ string) error {
	s.confirmKeys = append(s.confirmKeys, key)
	return nil
}

var _ email.Sender = (*captureSender)(nil)

func newEnv(t *testing.T, limiter rate.Limiter) *env {
	t.Helper()
	st := memory.New()
	snd := &captureSender{}
	hasher := &pwd.Argon2{Params: pwd.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}}
	mx := metrics.New()

	passwords := authority.New(passwordprov.AuthorityID, st.Providers(),
		passwordprov.NewBuilder(passwordprov.Deps{
			Accounts:  st.Accounts(),
			Passwords: st.Passwords(),
			Hasher:    hasher,
			Sender:    snd,
			Metrics:   mx,
		}))
	webauthns := authority.New(webauthnprov.AuthorityID, st.Providers(),
		webauthnprov.NewBuilder(webauthnprov.Deps{
			Accounts:    st.Accounts(),
			Credentials: st.Credentials(),
			Challenges:  webauthnprov.NewMemoryChallenges(),
			Metrics:     mx,
		}))

	issuer := token.NewIssuer("https://idp.example", []byte("test-secret"))
	api := httpapi.New(passwords, webauthns, issuer, limiter, mx)
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)

	e := &env{store: st, sender: snd, server: srv, issuer: issuer, passwords: passwords}

	prov, err := passwords.RegisterProvider(context.Background(), &repository.ProviderConfig{
		ProviderID: "acme-login", Realm: "acme",
	})
	require.NoError(t, err)
	acc := &repository.Account{
		ID:           uuid.NewString(),
		RepositoryID: prov.RepositoryID(),
		Subject:      uuid.NewString(),
		Realm:        "acme",
		Username:     "ana",
		Email:        "ana@example.com",
		Status:       repository.AccountStatusActive,
		Confirmed:    true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, st.Accounts().Create(context.Background(), acc))
	require.NoError(t, prov.SetPassword(context.Background(), "ana", "correct horse", false))
	return e
}

func (e *env) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestLoginIssuesToken(t *testing.T) {
	e := newEnv(t, nil)
	resp, out := e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "acme-login", "username": "ana", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := out["access_token"].(string)
	require.NotEmpty(t, raw)

	claims, err := e.issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "ana", claims.Username)
	require.Equal(t, "acme", claims.Realm)
	require.Equal(t, "acme-login", claims.ProviderID)
	require.Equal(t, "Bearer", out["token_type"])
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	e := newEnv(t, nil)
	for name, body := range map[string]map[string]string{
		"wrong password": {"provider_id": "acme-login", "username": "ana", "password": "nope nope nope"},
		"unknown user":   {"provider_id": "acme-login", "username": "nadie", "password": "whatever pass"},
	} {
		resp, out := e.post(t, "/v1/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		require.Equal(t, "invalid_credentials", out["error"], name)
	}
}

func TestLoginUnknownProvider(t *testing.T) {
	e := newEnv(t, nil)
	resp, _ := e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "nope", "username": "ana", "password": "correct horse",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginMissingFields(t *testing.T) {
	e := newEnv(t, nil)
	resp, _ := e.post(t, "/v1/auth/login", map[string]string{"provider_id": "acme-login"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoginRateLimited(t *testing.T) {
	e := newEnv(t, rate.NewMemoryLimiter(2, time.Minute))
	body := map[string]string{"provider_id": "acme-login", "username": "ana", "password": "bad password!"}

	for i := 0; i < 2; i++ {
		resp, _ := e.post(t, "/v1/auth/login", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp, _ := e.post(t, "/v1/auth/login", body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestResetEndpoints(t *testing.T) {
	e := newEnv(t, nil)

	// Start: 204 whether or not the user exists.
	resp, _ := e.post(t, "/v1/auth/reset", map[string]string{"provider_id": "acme-login", "username": "ana"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = e.post(t, "/v1/auth/reset", map[string]string{"provider_id": "acme-login", "username": "nadie"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, e.sender.resetKeys, 1)
	key := e.sender.resetKeys[0]

	// Confirm with a policy-violating replacement: reasons are exposed, and
	// the key was burned by the attempt.
	resp, out := e.post(t, "/v1/auth/reset/confirm", map[string]string{
		"provider_id": "acme-login", "key": key, "new_password": "short",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "policy_violation", out["error"])
	require.NotEmpty(t, out["reasons"])

	resp, _ = e.post(t, "/v1/auth/reset/confirm", map[string]string{
		"provider_id": "acme-login", "key": key, "new_password": "a fresh password",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A fresh key completes the rotation and the new password logs in.
	resp, _ = e.post(t, "/v1/auth/reset", map[string]string{"provider_id": "acme-login", "username": "ana"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	key = e.sender.resetKeys[len(e.sender.resetKeys)-1]
	resp, _ = e.post(t, "/v1/auth/reset/confirm", map[string]string{
		"provider_id": "acme-login", "key": key, "new_password": "a fresh password",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "acme-login", "username": "ana", "password": "a fresh password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "acme-login", "username": "ana", "password": "correct horse",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConfirmationEndpoints(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	// An unconfirmed account behind a requireConfirmation provider.
	reg, err := e.passwords.RegisterProvider(ctx, &repository.ProviderConfig{
		ProviderID: "beta-login",
		Realm:      "beta",
		Config:     map[string]any{"requireConfirmation": true},
	})
	require.NoError(t, err)
	acc := &repository.Account{
		ID:           uuid.NewString(),
		RepositoryID: reg.RepositoryID(),
		Subject:      uuid.NewString(),
		Realm:        "beta",
		Username:     "luis",
		Email:        "luis@example.com",
		Status:       repository.AccountStatusActive,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, e.store.Accounts().Create(ctx, acc))
	require.NoError(t, reg.SetPassword(ctx, "luis", "another password", false))

	resp, out := e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "beta-login", "username": "luis", "password": "another password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "unconfirmed account must not authenticate: %v", out)

	resp, _ = e.post(t, "/v1/auth/confirm/start", map[string]string{"provider_id": "beta-login", "username": "luis"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, e.sender.confirmKeys, 1)

	resp, _ = e.post(t, "/v1/auth/confirm", map[string]string{
		"provider_id": "beta-login", "key": e.sender.confirmKeys[0],
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.post(t, "/v1/auth/login", map[string]string{
		"provider_id": "beta-login", "username": "luis", "password": "another password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebAuthnStartEndpoints(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	// Register a webauthn provider sharing the realm's accounts.
	require.NoError(t, e.store.Providers().Save(ctx, &repository.ProviderConfig{
		AuthorityID: webauthnprov.AuthorityID,
		ProviderID:  "acme-passkeys",
		Realm:       "acme",
		Name:        "Acme",
		Config:      map[string]any{"rpID": "idp.example"},
	}))

	resp, out := e.post(t, "/v1/webauthn/register/start", map[string]string{
		"provider_id": "acme-passkeys", "username": "ana",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out["key"])
	require.NotNil(t, out["options"])

	// Login start without registered credentials: not found.
	resp, _ = e.post(t, "/v1/webauthn/login/start", map[string]string{
		"provider_id": "acme-passkeys", "username": "ana",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, nil)
	resp, err := http.Get(e.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	resp, err := http.Get(e.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
