package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rolegate/rolegate/internal/core/ports"
)

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal plaintext")
	}
	if err := h.Compare(hash, "s3cret"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := h.Compare(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestHasher_EmptyHashNeverMatches(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	if err := h.Compare("", "rolegate-dummy-secret"); err == nil {
		t.Fatal("empty hash must not match")
	}
}

func TestNewHasher_ClampsCost(t *testing.T) {
	if h := NewHasher(1); h.cost != bcrypt.MinCost {
		t.Fatalf("cost = %d", h.cost)
	}
}

func TestTokenManager_IssueVerify(t *testing.T) {
	m := NewTokenManager("secret", "rolegate", time.Hour)
	p := ports.Principal{Subject: "u1", Role: "HOD", Email: "h@example.com", Audience: ports.AudiencePortal}

	token, exp, err := m.Issue(p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %s", exp)
	}

	got, err := m.Verify(token, ports.AudiencePortal)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != p {
		t.Fatalf("principal mismatch: %+v", got)
	}
}

func TestTokenManager_RejectsWrongAudience(t *testing.T) {
	m := NewTokenManager("secret", "rolegate", time.Hour)
	token, _, _ := m.Issue(ports.Principal{Subject: "u1", Role: "ADMIN", Audience: ports.AudiencePortal})

	if _, err := m.Verify(token, ports.AudienceLicensing); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", "rolegate", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, _ := m.Issue(ports.Principal{Subject: "u1", Role: "ADMIN", Audience: ports.AudiencePortal})

	m.now = time.Now
	if _, err := m.Verify(token, ports.AudiencePortal); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	m := NewTokenManager("secret", "rolegate", time.Hour)
	other := NewTokenManager("other", "rolegate", time.Hour)
	token, _, _ := other.Issue(ports.Principal{Subject: "u1", Role: "ADMIN", Audience: ports.AudiencePortal})

	if _, err := m.Verify(token, ports.AudiencePortal); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewTokenManager("secret", "rolegate", time.Hour)
	claims := jwt.MapClaims{"sub": "u1", "role": "ADMIN", "aud": "portal", "iss": "rolegate", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(token, ports.AudiencePortal); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
