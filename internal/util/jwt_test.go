package util

import (
	"testing"
	"time"

	"mathdiag_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := "test-secret-test-secret-test-secret"

	token, err := GenerateJWT("teacher-42", model.RoleTeacher, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "teacher-42", claims.SubjectID)
	assert.Equal(t, model.RoleTeacher, claims.Role)
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("learner-1", model.RoleLearner, "secret-one-secret-one-secret-one", time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret-two-secret-two-secret-two")
	assert.Error(t, err)
}

func TestParseJWT_Expired(t *testing.T) {
	secret := "test-secret-test-secret-test-secret"
	token, err := GenerateJWT("learner-1", model.RoleLearner, secret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, secret)
	assert.Error(t, err)
}
