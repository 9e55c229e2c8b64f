package token_test

import (
	"testing"
	"time"

	"github.com/dropDatabas3/aac/internal/auth"
	"github.com/dropDatabas3/aac/internal/token"
)

func principal() *auth.Principal {
	return auth.NewPrincipal("sub-1", "ana", "acme", "acme-login", "password")
}

func TestIssueParseRoundTrip(t *testing.T) {
	iss := token.NewIssuer("https://idp.example", []byte("secret"))
	raw, err := iss.Issue(principal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "sub-1" || claims.Username != "ana" || claims.Realm != "acme" || claims.ProviderID != "acme-login" {
		t.Fatalf("claims = %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != auth.RoleUser {
		t.Fatalf("roles = %v", claims.Roles)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > iss.AccessTTL {
		t.Fatalf("expiry = %v", claims.ExpiresAt)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	a := token.NewIssuer("https://idp.example", []byte("secret-a"))
	b := token.NewIssuer("https://idp.example", []byte("secret-b"))
	raw, err := a.Issue(principal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(raw); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	a := token.NewIssuer("https://a.example", []byte("secret"))
	b := token.NewIssuer("https://b.example", []byte("secret"))
	raw, err := a.Issue(principal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(raw); err == nil {
		t.Fatal("token from another issuer accepted")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	iss := token.NewIssuer("https://idp.example", []byte("secret"))
	iss.AccessTTL = -time.Minute
	raw, err := iss.Issue(principal())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := iss.Parse(raw); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestIssueRequiresSecret(t *testing.T) {
	iss := token.NewIssuer("https://idp.example", nil)
	if _, err := iss.Issue(principal()); err == nil {
		t.Fatal("issuer without secret produced a token")
	}
}
