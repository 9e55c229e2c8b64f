package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/domain/repository"
)

type apiError struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
	RequestID        string   `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, desc string) {
	rid := w.Header().Get("X-Request-ID")
	writeJSON(w, status, apiError{Error: code, ErrorDescription: desc, RequestID: rid})
}

// readJSON decodifica el body de forma tolerante (no falla por campos extra).
// Valida Content-Type y limita el body a 1MB.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		writeErr(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeErr(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}

// writeAuthError mapea la taxonomía de errores del core a respuestas HTTP.
// Los fallos de autenticación salen todos como 401 genérico; los policy
// reasons sí se exponen (validación proactiva, no un oráculo).
func writeAuthError(w http.ResponseWriter, err error) {
	var perr *auth.PolicyError
	if errors.As(err, &perr) {
		rid := w.Header().Get("X-Request-ID")
		writeJSON(w, http.StatusUnprocessableEntity, apiError{
			Error: "policy_violation", Reasons: perr.Reasons, RequestID: rid,
		})
		return
	}
	var ierr *auth.InputError
	if errors.As(err, &ierr) {
		writeErr(w, http.StatusBadRequest, ierr.Code, "")
		return
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUntrustedAttestation),
		errors.Is(err, auth.ErrUntrustedAssertion):
		writeErr(w, http.StatusUnauthorized, "invalid_credentials", "")
	case errors.Is(err, repository.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, repository.ErrConflict):
		writeErr(w, http.StatusConflict, "conflict", "")
	default:
		writeErr(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeRateLimited(w http.ResponseWriter, retry time.Duration) {
	if retry > 0 {
		secs := int(math.Ceil(retry.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	writeErr(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
}
