package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"taskboard/internal/auth"
)

const testSecret = "test-secret-key"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	assert.NoError(t, err)
	return token
}

func TestGenerateAndParseToken(t *testing.T) {
	userID := "test-user-id"
	token, err := auth.GenerateToken(userID, testSecret, time.Hour)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedUserID, err := auth.ParseToken(token, testSecret)

	assert.NoError(t, err)
	assert.Equal(t, userID, parsedUserID)
}

func TestParseToken_InvalidToken(t *testing.T) {
	_, err := auth.ParseToken("invalid-token", testSecret)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("user", "other-secret", time.Hour)
	assert.NoError(t, err)

	_, err = auth.ParseToken(token, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "test-user-id",
		"exp":     time.Now().Add(-1 * time.Hour).Unix(),
	}, []byte(testSecret))

	_, err := auth.ParseToken(expired, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_MissingExpiry(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u"}, []byte(testSecret))

	_, err := auth.ParseToken(token, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": "u",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, []byte(testSecret))

	_, err := auth.ParseToken(token, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_SubjectFallback(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "subject-id",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, []byte(testSecret))

	userID, err := auth.ParseToken(token, testSecret)
	assert.NoError(t, err)
	assert.Equal(t, "subject-id", userID)
}

func TestParseToken_NoPrincipal(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, []byte(testSecret))

	_, err := auth.ParseToken(token, testSecret)
	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}
