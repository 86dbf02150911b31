package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/custodyledger/internal/auth"
)

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer([]byte("test-secret"), "custodyd", time.Hour)
}

func TestTokenIssuer_IssueVerify(t *testing.T) {
	ti := newTestIssuer()

	token, exp, err := ti.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Operator != "alice" || claims.Subject != "alice" {
		t.Errorf("operator: got %q/%q, want alice", claims.Operator, claims.Subject)
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	// A 1ns TTL is truncated to the issue second and is already expired.
	ti := auth.NewTokenIssuer([]byte("test-secret"), "custodyd", time.Nanosecond)
	token, _, err := ti.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ti.Verify(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenIssuer_Verify_wrongSecret(t *testing.T) {
	token, _, err := newTestIssuer().Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	other := auth.NewTokenIssuer([]byte("other-secret"), "custodyd", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	token, _, err := auth.NewTokenIssuer([]byte("test-secret"), "elsewhere", time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newTestIssuer().Verify(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestTokenIssuer_Verify_garbage(t *testing.T) {
	if _, err := newTestIssuer().Verify("not.a.jwt"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestTokenIssuer_defaultTTL(t *testing.T) {
	if got := auth.NewTokenIssuer([]byte("s"), "i", 0).TTL(); got != 8*time.Hour {
		t.Errorf("TTL: got %v, want 8h", got)
	}
}
