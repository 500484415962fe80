package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueParseRoundTrip(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "campustrack", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := Parse(pair.AccessToken, "secret", "campustrack")
	require.NoError(t, err)
	assert.Equal(t, "fac-1", claims.Subject)
	assert.Equal(t, RoleFaculty, claims.Role)
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "campustrack", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "other-secret", "campustrack")
	assert.Error(t, err)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pair, err := Issue("fac-1", RoleAdmin, "someone-else", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "secret", "campustrack")
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("fac-1", RoleFaculty, "campustrack", "secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = Parse(pair.AccessToken, "secret", "campustrack")
	assert.Error(t, err)
}
