// Package token emite access tokens firmados a partir de un Principal.
// Es el rol de "token issuer" del borde: el core de verificación no lo usa.
package token

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/aac/internal/auth"
)

// Issuer firma tokens HS256 con un secreto compartido.
type Issuer struct {
	Iss       string
	Secret    []byte
	AccessTTL time.Duration
}

// NewIssuer crea un issuer con TTL por defecto de 15 minutos.
func NewIssuer(iss string, secret []byte) *Issuer {
	return &Issuer{Iss: iss, Secret: secret, AccessTTL: 15 * time.Minute}
}

// Claims son los claims emitidos para un principal autenticado.
type Claims struct {
	jwtv5.RegisteredClaims
	Username   string   `json:"preferred_username"`
	Realm      string   `json:"realm"`
	ProviderID string   `json:"provider_id"`
	Roles      []string `json:"roles"`
}

// Issue firma un access token para el principal.
func (i *Issuer) Issue(p *auth.Principal) (string, error) {
	if len(i.Secret) == 0 {
		return "", errors.New("issuer secret not configured")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    i.Iss,
			Subject:   p.Subject,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(i.AccessTTL)),
		},
		Username:   p.Username,
		Realm:      p.Realm,
		ProviderID: p.ProviderID,
		Roles:      p.Roles,
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(i.Secret)
}

// Parse valida un token emitido por este issuer y retorna sus claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwtv5.ParseWithClaims(raw, &claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.Secret, nil
	}, jwtv5.WithIssuer(i.Iss), jwtv5.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
