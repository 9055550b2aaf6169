package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "casework/pkg/domain-errors"
)

var identity = Identity{ID: "sup-1", Name: "Dana Supervisor", Email: "dana@example.com", Role: "supervisor"}

func TestIssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-signing-key", "casework", "casework-api")

	token, err := svc.Issue(identity, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sup-1", claims.ActorID)
	assert.Equal(t, "Dana Supervisor", claims.Name)
	assert.Equal(t, "supervisor", claims.Role)

	raw, err := svc.Parse(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), raw.ExpiresAt.Time, time.Minute)
	assert.NotEmpty(t, raw.ID)
}

func TestValidateRejects(t *testing.T) {
	svc := NewTokenService("test-signing-key", "casework", "casework-api")

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("invalid-token-string")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.Issue(identity, -time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("other signing key", func(t *testing.T) {
		other := NewTokenService("another-key", "casework", "casework-api")
		token, err := other.Issue(identity, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("other audience", func(t *testing.T) {
		other := NewTokenService("test-signing-key", "casework", "another-api")
		token, err := other.Issue(identity, time.Hour)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := svc.Issue(Identity{Name: "nobody"}, time.Hour)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
