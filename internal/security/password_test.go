package security

import (
	"errors"
	"strings"
	"testing"
)

func testHasher() *PasswordHasher {
	return NewPasswordHasher(Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
}

func TestPasswordHasherDeriveAndVerify(t *testing.T) {
	h := testHasher()
	hash, err := h.Derive("Valid#Pass1234")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if strings.Contains(hash, "Valid#Pass1234") {
		t.Fatal("hash must not contain plaintext")
	}
	if err := h.Verify(hash, "Valid#Pass1234"); err != nil {
		t.Fatalf("verify matching password: %v", err)
	}
	if err := h.Verify(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestPasswordHasherFreshSaltPerDerive(t *testing.T) {
	h := testHasher()
	a, err := h.Derive("same-password")
	if err != nil {
		t.Fatalf("derive a: %v", err)
	}
	b, err := h.Derive("same-password")
	if err != nil {
		t.Fatalf("derive b: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestPasswordHasherRejectsMalformedHash(t *testing.T) {
	h := testHasher()
	cases := []string{
		"",
		"plain",
		"$bcrypt$v=19$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaA",
		"$argon2id$v=18$m=64,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=64,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1048576,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2hoYXNoaGFzaA",
	}
	for _, tc := range cases {
		if err := h.Verify(tc, "anything"); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q) expected ErrInvalidHash, got %v", tc, err)
		}
	}
}

func TestPasswordHasherEmptyPassword(t *testing.T) {
	if _, err := testHasher().Derive(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestRandomAlphanumeric(t *testing.T) {
	s, err := RandomAlphanumeric(4)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if len(s) != 4 {
		t.Fatalf("expected 4 chars, got %q", s)
	}
	for _, r := range s {
		if !strings.ContainsRune(alphanumeric, r) {
			t.Fatalf("unexpected rune %q", r)
		}
	}
}
