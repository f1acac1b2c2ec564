package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	signer, err := NewSigner(GenerateSecureSecret())
	require.NoError(t, err)

	token, err := signer.Issue("editor", true, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."), "формат JWT")

	claims, err := signer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "editor", claims.Operator)
	assert.True(t, claims.IsAdmin)
}

func TestValidateRejects(t *testing.T) {
	signer, err := NewSigner(GenerateSecureSecret())
	require.NoError(t, err)
	other, err := NewSigner(GenerateSecureSecret())
	require.NoError(t, err)

	foreign, err := other.Issue("editor", true, time.Hour)
	require.NoError(t, err)
	_, err = signer.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken, "чужой секрет")

	expired, err := signer.Issue("editor", true, -time.Minute)
	require.NoError(t, err)
	_, err = signer.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken, "истёкший токен")

	_, err = signer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	_, err := NewSigner("c2hvcnQ=")
	assert.Error(t, err)
	_, err = NewSigner("%%%")
	assert.Error(t, err)
}
