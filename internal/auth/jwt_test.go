package auth

import (
	"testing"
	"time"

	"callintel/internal/config"
)

func TestIssueAndVerify(t *testing.T) {
	v, err := NewVerifier(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", JWTAudience: "aud"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := v.Issue(now, Identity{UserID: "user-1", OrganizationID: "org-1", Role: "sales_rep", Name: "Dana"}, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := v.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.OrganizationID != "org-1" || id.Role != "sales_rep" || id.Name != "Dana" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewVerifier(config.AuthConfig{JWTSecret: "secret"})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := v.Issue(now, Identity{UserID: "u", OrganizationID: "o", Role: "r"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(tok, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifyRejectsMissingOrganization(t *testing.T) {
	v, _ := NewVerifier(config.AuthConfig{JWTSecret: "secret"})
	now := time.Now()
	tok, err := v.Issue(now, Identity{UserID: "u", Role: "r"}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(tok, now); err == nil {
		t.Fatalf("expected organization_id missing")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewVerifier(config.AuthConfig{JWTSecret: "a"})
	b, _ := NewVerifier(config.AuthConfig{JWTSecret: "b"})
	now := time.Now()
	tok, _ := a.Issue(now, Identity{UserID: "u", OrganizationID: "o", Role: "r"}, time.Minute)
	if _, err := b.Verify(tok, now); err == nil {
		t.Fatalf("expected signature failure")
	}
}
