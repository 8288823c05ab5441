// Package auth issues and checks session tokens, password reset tokens and
// password digests.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// resetTokenBytes is the entropy of a reset token before hex encoding.
const resetTokenBytes = 32

// TokenIssuer signs session tokens with an HMAC secret and mints reset tokens.
// Rotating the secret invalidates every outstanding session.
type TokenIssuer struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, sessionTTL, resetTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

// Issue returns a signed HS256 token whose subject is accountID.
func (t *TokenIssuer) Issue(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, common.ErrInvalidToken
	}

	now := t.now()
	expiresAt := now.Add(t.sessionTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm and expiry and returns the subject.
// An elapsed token yields common.ErrTokenExpired, anything else wrong
// yields common.ErrInvalidToken.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// IssueReset mints a single-use reset token. Only digest is meant to be
// stored; plain goes to the account owner.
func (t *TokenIssuer) IssueReset() (plain, digest string, expiresAt time.Time, err error) {
	plain, err = common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return plain, t.MatchReset(plain), t.now().Add(t.resetTTL), nil
}

// MatchReset maps a presented reset token to the digest it was stored under.
func (t *TokenIssuer) MatchReset(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
