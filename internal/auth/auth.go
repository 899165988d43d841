// Package auth resolves verified caller identity for each request.
//
// Tokens are HMAC-SHA256 signed bearer credentials minted by the same
// deployment (shared secret). Verification yields a Caller whose UserID is
// the only identity any downstream component may act on; nothing else in
// the system constructs a Caller from request data.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Sentinel errors surfaced before any orchestration work starts.
var (
	// ErrMissingToken indicates no bearer credential was supplied.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken indicates the credential is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Caller is the authenticated identity for one request. It is constructed
// exactly once per request by Verify and never mutated afterwards.
// Tool handlers receive it as an explicit parameter so the ownership
// invariant is visible in call signatures.
type Caller struct {
	UserID string
}

// Verifier validates bearer tokens against a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier. The secret length is validated by config
// before this point.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Sign mints a token for userID. Used by deployment tooling and tests;
// the server itself only verifies.
func (v *Verifier) Sign(userID string) string {
	id := base64.RawURLEncoding.EncodeToString([]byte(userID))
	return id + "." + base64.RawURLEncoding.EncodeToString(v.mac(id))
}

// Verify checks token and returns the Caller it identifies.
func (v *Verifier) Verify(token string) (Caller, error) {
	if token == "" {
		return Caller{}, ErrMissingToken
	}

	id, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Caller{}, ErrInvalidToken
	}

	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Caller{}, ErrInvalidToken
	}
	if !hmac.Equal(got, v.mac(id)) {
		return Caller{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil || len(raw) == 0 {
		return Caller{}, ErrInvalidToken
	}

	return Caller{UserID: string(raw)}, nil
}

func (v *Verifier) mac(payload string) []byte {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}
