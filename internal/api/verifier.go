package api

import (
	"crypto/subtle"
	"errors"
	"strings"
)

// StaticTokenVerifier checks pushes against a shared bearer token.
type StaticTokenVerifier struct {
	token string
}

// NewStaticTokenVerifier creates a verifier for the given token.
func NewStaticTokenVerifier(token string) *StaticTokenVerifier {
	return &StaticTokenVerifier{token: token}
}

// Verify checks the Authorization header carries the expected token.
func (v *StaticTokenVerifier) Verify(authorization string) error {
	got, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok {
		return errors.New("missing bearer token")
	}

	if subtle.ConstantTimeCompare([]byte(got), []byte(v.token)) != 1 {
		return errors.New("invalid token")
	}

	return nil
}
