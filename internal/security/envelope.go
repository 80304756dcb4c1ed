package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrEnvelopeOpen         = errors.New("envelope open failed")
	ErrMalformedKeyMaterial = errors.New("malformed key material")
)

// EnvelopeHalf selects which nonce of a stored pair protects a ciphertext.
type EnvelopeHalf int

const (
	AccessHalf EnvelopeHalf = iota
	RefreshHalf
)

func (h EnvelopeHalf) String() string {
	if h == RefreshHalf {
		return "refresh"
	}
	return "access"
}

// SealedPair is what a mint persists: two hex ciphertexts, the hex key and the
// nonce pair formatted as hex(nonce1):hex(nonce2).
type SealedPair struct {
	Access  string
	Refresh string
	Key     string
	Nonce   string
}

// EnvelopeCipher wraps signed assertions in XChaCha20-Poly1305 using fresh
// key material per mint.
type EnvelopeCipher struct {
	rand io.Reader
}

func NewEnvelopeCipher() *EnvelopeCipher {
	return &EnvelopeCipher{rand: rand.Reader}
}

// NewEnvelopeCipherWithReader is used by tests that need a deterministic or failing entropy source.
func NewEnvelopeCipherWithReader(r io.Reader) *EnvelopeCipher {
	return &EnvelopeCipher{rand: r}
}

// Seal generates one 256-bit key and two independent 192-bit nonces, then
// encrypts access with nonce1 and refresh with nonce2.
func (c *EnvelopeCipher) Seal(access, refresh []byte) (SealedPair, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(c.rand, key); err != nil {
		return SealedPair{}, fmt.Errorf("generate key: %w", err)
	}
	accessNonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(c.rand, accessNonce); err != nil {
		return SealedPair{}, fmt.Errorf("generate access nonce: %w", err)
	}
	refreshNonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(c.rand, refreshNonce); err != nil {
		return SealedPair{}, fmt.Errorf("generate refresh nonce: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return SealedPair{}, fmt.Errorf("init cipher: %w", err)
	}
	return SealedPair{
		Access:  hex.EncodeToString(aead.Seal(nil, accessNonce, access, nil)),
		Refresh: hex.EncodeToString(aead.Seal(nil, refreshNonce, refresh, nil)),
		Key:     hex.EncodeToString(key),
		Nonce:   hex.EncodeToString(accessNonce) + ":" + hex.EncodeToString(refreshNonce),
	}, nil
}

// Open decrypts a hex ciphertext with the stored key and the nonce selected by
// half. Malformed hex, wrong lengths and tag mismatches all return errors
// wrapping ErrEnvelopeOpen.
func (c *EnvelopeCipher) Open(keyHex, noncePair, ciphertextHex string, half EnvelopeHalf) ([]byte, error) {
	aead, nonce, err := parseKeyMaterial(keyHex, noncePair, half)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelopeOpen, err)
	}
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, fmt.Errorf("%w: decode ciphertext", ErrEnvelopeOpen)
	}
	if len(ciphertext) < aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrEnvelopeOpen)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrEnvelopeOpen)
	}
	return plaintext, nil
}

// SplitNoncePair returns the two hex nonces of a stored pair.
func SplitNoncePair(noncePair string) (string, string, error) {
	parts := strings.Split(noncePair, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: nonce pair", ErrMalformedKeyMaterial)
	}
	return parts[0], parts[1], nil
}

func parseKeyMaterial(keyHex, noncePair string, half EnvelopeHalf) (cipher.AEAD, []byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, nil, fmt.Errorf("%w: key", ErrMalformedKeyMaterial)
	}
	accessNonce, refreshNonce, err := SplitNoncePair(noncePair)
	if err != nil {
		return nil, nil, err
	}
	selected := accessNonce
	if half == RefreshHalf {
		selected = refreshNonce
	}
	nonce, err := hex.DecodeString(selected)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, nil, fmt.Errorf("%w: %s nonce", ErrMalformedKeyMaterial, half)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedKeyMaterial, err)
	}
	return aead, nonce, nil
}
