// Package vtoken encodes the verification context carried between the two
// steps of the login/registration flow. The token replaces server-side
// session state: it is sealed with AES-256-GCM under a process-wide key, so
// any bit flip, truncation, or field tampering fails authentication and the
// whole decode is rejected. Clients treat it as an opaque string.
package vtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/homehive/homehive-api/internal/domain"
)

// ErrInvalid covers every decode failure: bad base64, wrong key, tampered
// ciphertext, malformed JSON, or a payload missing required fields. Callers
// must not distinguish between these; partial trust is not a state.
var ErrInvalid = errors.New("invalid verification token")

// Payload is the verification context sealed inside a token. Immutable once
// issued; a new token is minted per login attempt, never patched.
type Payload struct {
	UserID     string        `json:"user_id"`
	Method     domain.Method `json:"method"`
	Identifier string        `json:"identifier"` // real address even when the client only sees a masked one
	Remember   bool          `json:"remember"`
	IssuedAt   int64         `json:"issued_at"`
	ExpiresAt  int64         `json:"expires_at"`
}

// Expired reports whether the payload's validity window has passed at now.
// Expiry is the caller's check: an expired-but-authentic token is a different
// condition from a corrupt one.
func (p *Payload) Expired(now time.Time) bool {
	return now.Unix() >= p.ExpiresAt
}

// Codec seals and opens verification tokens with a symmetric key loaded once
// at process start. Safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec builds a Codec from a 32-byte key (AES-256-GCM).
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("verification token key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encode seals the payload into an opaque base64url string. The random nonce
// is prepended to the ciphertext.
func (c *Codec) Encode(p Payload) (string, error) {
	plain, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode authenticates and deserializes a token. Any failure, including a
// payload with a missing user_id or an unknown method, yields ErrInvalid.
func (c *Codec) Decode(token string) (*Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalid
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return nil, ErrInvalid
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, ErrInvalid
	}
	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, ErrInvalid
	}
	if p.UserID == "" || p.Identifier == "" || p.ExpiresAt == 0 {
		return nil, ErrInvalid
	}
	if p.Method != domain.MethodEmail && p.Method != domain.MethodPhone {
		return nil, ErrInvalid
	}
	return &p, nil
}
