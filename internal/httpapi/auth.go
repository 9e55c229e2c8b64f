package httpapi

import (
	"net/http"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/domain/repository"
	"github.com/dropDatabas3/aac/internal/observability/logger"
)

type loginIn struct {
	ProviderID string `json:"provider_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

type tokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Subject     string `json:"subject"`
	Realm       string `json:"realm"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in loginIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Username == "" || in.Password == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id, username y password son requeridos")
		return
	}
	if s.rlOr429(w, r, "login:"+in.ProviderID+":"+in.Username) {
		return
	}
	p, err := s.Passwords.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	principal, err := p.Verify(r.Context(), in.Username, in.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	s.writeToken(w, principal)
}

func (s *Server) writeToken(w http.ResponseWriter, principal *auth.Principal) {
	tok, err := s.Issuer.Issue(principal)
	if err != nil {
		s.log.Error("token issuance failed", logger.Err(err))
		writeErr(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, tokenOut{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.Issuer.AccessTTL.Seconds()),
		Subject:     principal.Subject,
		Realm:       principal.Realm,
	})
}

type resetStartIn struct {
	ProviderID string `json:"provider_id"`
	Username   string `json:"username"`
}

// resetStart dispara el envío de una reset key. Responde 204 exista o no la
// cuenta (anti-enumeración).
func (s *Server) resetStart(w http.ResponseWriter, r *http.Request) {
	var in resetStartIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Username == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y username son requeridos")
		return
	}
	if s.rlOr429(w, r, "reset:"+in.ProviderID+":"+in.Username) {
		return
	}
	p, err := s.Passwords.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := p.ResetPassword(r.Context(), in.Username); err != nil && !repository.IsNotFound(err) {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetConfirmIn struct {
	ProviderID  string `json:"provider_id"`
	Key         string `json:"key"`
	NewPassword string `json:"new_password"`
}

func (s *Server) resetConfirm(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Key == "" || in.NewPassword == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id, key y new_password son requeridos")
		return
	}
	p, err := s.Passwords.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	account, err := p.ConfirmReset(r.Context(), in.Key)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := p.SetPassword(r.Context(), account.Username, in.NewPassword, false); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmStartIn struct {
	ProviderID string `json:"provider_id"`
	Username   string `json:"username"`
}

// confirmStart dispara (o re-dispara) el mail de confirmación de cuenta.
// Mismo contrato anti-enumeración que resetStart.
func (s *Server) confirmStart(w http.ResponseWriter, r *http.Request) {
	var in confirmStartIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Username == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y username son requeridos")
		return
	}
	p, err := s.Passwords.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if err := p.RequestConfirmation(r.Context(), in.Username); err != nil && !repository.IsNotFound(err) {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmIn struct {
	ProviderID string `json:"provider_id"`
	Key        string `json:"key"`
}

func (s *Server) confirmAccount(w http.ResponseWriter, r *http.Request) {
	var in confirmIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Key == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y key son requeridos")
		return
	}
	p, err := s.Passwords.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	if _, err := p.ConfirmAccount(r.Context(), in.Key); err != nil {
		writeAuthError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
