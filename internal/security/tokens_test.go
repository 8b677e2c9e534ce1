package security

import (
	"testing"
	"time"
)

func TestNewSessionToken(t *testing.T) {
	tok, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if len(tok) != 43 {
		t.Errorf("token length = %d, want 43", len(tok))
	}
	tok2, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	if tok == tok2 {
		t.Error("two tokens should not be equal")
	}
}

func TestAdminTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestAdminTokenProvider()
	if err != nil {
		t.Fatalf("NewTestAdminTokenProvider: %v", err)
	}

	token, exp, err := p.Issue("admin-1", "root")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	adminID, username, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if adminID != "admin-1" || username != "root" {
		t.Errorf("Validate: got adminID=%q username=%q", adminID, username)
	}
}

func TestAdminTokenProvider_ValidateInvalid(t *testing.T) {
	p, err := NewTestAdminTokenProvider()
	if err != nil {
		t.Fatalf("NewTestAdminTokenProvider: %v", err)
	}
	_, _, err = p.Validate("invalid-token")
	if err != ErrInvalidToken {
		t.Errorf("Validate invalid token: want ErrInvalidToken, got %v", err)
	}
}

func TestAdminTokenProvider_WrongIssuer(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	issuing := NewAdminTokenProvider(signer, pub, "other-issuer", "test-audience", time.Hour)
	validating := NewAdminTokenProvider(signer, pub, "test-issuer", "test-audience", time.Hour)

	token, _, err := issuing.Issue("admin-1", "root")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := validating.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate with wrong issuer: want ErrInvalidToken, got %v", err)
	}
}
