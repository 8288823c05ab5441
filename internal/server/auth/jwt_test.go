package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/coursesell/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("super-secret", time.Hour, time.Minute)

	tok, exp, err := issuer.Issue("user-123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 2*time.Second)

	id, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("secret", time.Hour, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, _, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := NewTokenIssuer("right-secret", time.Hour, 0).Issue("u2")
	require.NoError(t, err)

	_, err = NewTokenIssuer("wrong-secret", time.Hour, 0).Verify(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := jwt.RegisteredClaims{
		Subject:   "u3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	issuer := NewTokenIssuer("k", time.Hour, 0)
	for _, tok := range []string{hs512, none} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	}
}

func TestVerify_MissingSubjectOrExpiry(t *testing.T) {
	t.Parallel()

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u"}).SignedString([]byte("k"))
	require.NoError(t, err)

	issuer := NewTokenIssuer("k", time.Hour, 0)
	for _, tok := range []string{noSub, noExp, "not.a.jwt", ""} {
		_, err := issuer.Verify(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	t.Parallel()

	_, _, err := NewTokenIssuer("k", time.Hour, 0).Issue("")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestIssueReset(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("k", time.Hour, 15*time.Minute)

	plain, digest, exp, err := issuer.IssueReset()
	require.NoError(t, err)
	assert.Len(t, plain, 64)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, plain, digest)
	assert.Equal(t, digest, issuer.MatchReset(plain))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 2*time.Second)

	other, _, _, err := issuer.IssueReset()
	require.NoError(t, err)
	assert.NotEqual(t, plain, other)
}

func TestMatchReset_Deterministic(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("k", 0, 0)
	assert.Equal(t, issuer.MatchReset("abc"), issuer.MatchReset("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", issuer.MatchReset("abc"))
}
