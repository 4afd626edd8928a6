// Package auth implements a minimal stand-in for the external auth
// service: an opaque, HMAC-signed bearer token carrying a user id and an
// expiry.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidToken covers any malformed, unparseable, or tampered token.
var ErrInvalidToken = errors.New("auth: invalid token")

// ErrExpiredToken is returned for a well-formed token past its expiry.
var ErrExpiredToken = errors.New("auth: token expired")

// TokenVerifier extracts a user id from a bearer token, or reports why the
// token was rejected.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// HMACVerifier checks bearer tokens of the form
// "<userID>.<expiryUnix>.<hexHMAC>".
type HMACVerifier struct {
	secret []byte
}

// NewVerifier builds an HMACVerifier using secret as the HMAC key.
func NewVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Issue mints a token for userID valid until expiry. Exposed for tests and
// for an operator minting dev tokens without a full auth service.
func (v *HMACVerifier) Issue(userID string, expiry time.Time) string {
	body := fmt.Sprintf("%s.%d", userID, expiry.Unix())
	sig := v.sign(body)
	return body + "." + sig
}

// Verify checks token's signature and expiry, returning the carried user id.
func (v *HMACVerifier) Verify(token string) (userID string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	body := parts[0] + "." + parts[1]
	wantSig := v.sign(body)
	if !hmac.Equal([]byte(wantSig), []byte(parts[2])) {
		return "", ErrInvalidToken
	}

	expiryUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if time.Now().After(time.Unix(expiryUnix, 0)) {
		return "", ErrExpiredToken
	}
	if parts[0] == "" {
		return "", ErrInvalidToken
	}
	return parts[0], nil
}

func (v *HMACVerifier) sign(body string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// AllowAnyVerifier accepts any non-empty token and extracts the user id as
// its raw text, for AUTH_MODE=insecure-dev.
type AllowAnyVerifier struct{}

// NewAllowAnyVerifier builds a verifier that performs no real
// authentication; only for local development.
func NewAllowAnyVerifier() *AllowAnyVerifier {
	return &AllowAnyVerifier{}
}

func (AllowAnyVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
