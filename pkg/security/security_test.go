package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgonRoundTrip(t *testing.T) {
	a := NewArgon()

	hash, err := a.GenerateFromPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := a.VerifyPasswd("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgonHashesAreSalted(t *testing.T) {
	a := NewArgon()

	h1, err := a.GenerateFromPassword("same input")
	require.NoError(t, err)
	h2, err := a.GenerateFromPassword("same input")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswdRejectsGarbage(t *testing.T) {
	a := NewArgon()

	_, err := a.VerifyPasswd("whatever", "not-a-phc-string")
	assert.Error(t, err)
}

func TestTokenHashing(t *testing.T) {
	tok, err := GenerateToken(32)
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	assert.Equal(t, HashToken(tok), HashToken(tok))
	assert.NotEqual(t, tok, HashToken(tok))

	other, err := GenerateToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, HashToken(tok), HashToken(other))
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, uri, err := GenerateTOTP("kanban.example", "user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, uri, "otpauth://")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	assert.True(t, VerifyTOTP(code, secret))
	assert.False(t, VerifyTOTP("000000", secret))
	assert.False(t, VerifyTOTP("", secret))
	assert.False(t, VerifyTOTP(code, ""))
}

func TestSessionCookieRoundTrip(t *testing.T) {
	viper.Set("session.secret", "test-secret")

	signed, err := SignSessionID("sess-123", time.Now().Add(time.Hour))
	require.NoError(t, err)

	sid, err := ParseSessionID(signed)
	require.NoError(t, err)
	assert.Equal(t, "sess-123", sid)
}

func TestParseSessionIDRejectsExpired(t *testing.T) {
	viper.Set("session.secret", "test-secret")

	signed, err := SignSessionID("sess-123", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = ParseSessionID(signed)
	assert.Error(t, err)
}

func TestParseSessionIDRejectsForgedSignature(t *testing.T) {
	viper.Set("session.secret", "test-secret")

	signed, err := SignSessionID("sess-123", time.Now().Add(time.Hour))
	require.NoError(t, err)

	viper.Set("session.secret", "different-secret")

	_, err = ParseSessionID(signed)
	assert.Error(t, err)
}
