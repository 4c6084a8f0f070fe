package devicestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLikedSetRoundTrip(t *testing.T) {
	s := openMemory(t)

	ids, err := s.LikedSet("dev-1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, s.SaveLikedSet("dev-1", []string{"p2", "p1"}))
	ids, err = s.LikedSet("dev-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	other, err := s.LikedSet("dev-2")
	require.NoError(t, err)
	assert.Empty(t, other, "devices must not share liked sets")
}

func TestThemeDefaultsAndValidation(t *testing.T) {
	s := openMemory(t)

	theme, err := s.Theme("dev-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme, theme)

	require.NoError(t, s.SetTheme("dev-1", ThemeLight))
	theme, err = s.Theme("dev-1")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	assert.Error(t, s.SetTheme("dev-1", Theme("sepia")))
}

func TestRevoke(t *testing.T) {
	s := openMemory(t)

	revoked, err := s.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke("jti-1", time.Now().Add(time.Hour)))
	revoked, err = s.IsRevoked("jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, s.Revoke("jti-2", time.Now().Add(-time.Minute)))
	revoked, err = s.IsRevoked("jti-2")
	require.NoError(t, err)
	assert.False(t, revoked, "already expired tokens need no revocation entry")
}

func TestOAuthStateIsSingleUse(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.SaveState("st-1", "dev-9", time.Minute))

	device, ok, err := s.ConsumeState("st-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dev-9", device)

	_, ok, err = s.ConsumeState("st-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
