package httpapi

import (
	"encoding/base64"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
)

type ceremonyStartIn struct {
	ProviderID string `json:"provider_id"`
	Username   string `json:"username"`
}

type ceremonyStartOut struct {
	Key     string `json:"key"`
	Options any    `json:"options"`
}

func (s *Server) registerStart(w http.ResponseWriter, r *http.Request) {
	var in ceremonyStartIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Username == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y username son requeridos")
		return
	}
	p, err := s.WebAuthn.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	reg, err := p.StartRegistration(r.Context(), in.Username)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ceremonyStartOut{Key: reg.Key, Options: reg.Options})
}

// registerFinish recibe la attestation response del cliente en el body (el
// formato wire de WebAuthn, parseado por go-webauthn) y el provider y la key
// de ceremonia por query string.
func (s *Server) registerFinish(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider_id")
	key := r.URL.Query().Get("key")
	if providerID == "" || key == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y key son requeridos")
		return
	}
	p, err := s.WebAuthn.Provider(r.Context(), providerID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	resp, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_attestation", "")
		return
	}
	cred, err := p.FinishRegistration(r.Context(), key, resp)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"credential_id": base64.RawURLEncoding.EncodeToString(cred.CredentialID),
	})
}

func (s *Server) loginStart(w http.ResponseWriter, r *http.Request) {
	var in ceremonyStartIn
	if !readJSON(w, r, &in) {
		return
	}
	if in.ProviderID == "" || in.Username == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y username son requeridos")
		return
	}
	if s.rlOr429(w, r, "walogin:"+in.ProviderID+":"+in.Username) {
		return
	}
	p, err := s.WebAuthn.Provider(r.Context(), in.ProviderID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	login, err := p.StartLogin(r.Context(), in.Username)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ceremonyStartOut{Key: login.Key, Options: login.Options})
}

func (s *Server) loginFinish(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("provider_id")
	key := r.URL.Query().Get("key")
	if providerID == "" || key == "" {
		writeErr(w, http.StatusBadRequest, "missing_fields", "provider_id y key son requeridos")
		return
	}
	p, err := s.WebAuthn.Provider(r.Context(), providerID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	resp, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_assertion", "")
		return
	}
	principal, err := p.FinishLogin(r.Context(), key, resp)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	s.writeToken(w, principal)
}
