package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureEmergencyVotes, "bourgade-1"))
	assert.True(t, ff.IsEnabled(FeatureRedisCache, ""))
	assert.False(t, ff.IsEnabled("does.not.exist", "bourgade-1"))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_EXPEDITION_EMERGENCY_VOTES", "false")
	t.Setenv("FEATURE_INTEGRATION_REDIS_CACHE", "50")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureEmergencyVotes, "bourgade-1"))

	// A partial rollout is never globally on.
	assert.False(t, ff.IsEnabled(FeatureRedisCache, ""))

	features := ff.GetAllFeatures()
	assert.Equal(t, 50, features[FeatureRedisCache].RolloutPercent)
}

func TestFeatureFlags_RolloutIsConsistentPerTown(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureDirectionVoting, 50))

	first := ff.IsEnabled(FeatureDirectionVoting, "bourgade-1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureDirectionVoting, "bourgade-1"))
	}
}

func TestFeatureFlags_TownOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureDiscordNotifications, 0))

	assert.False(t, ff.IsEnabled(FeatureDiscordNotifications, "bourgade-1"))

	ff.SetTownOverride("bourgade-1", FeatureDiscordNotifications, true)
	assert.True(t, ff.IsEnabled(FeatureDiscordNotifications, "bourgade-1"))
	assert.False(t, ff.IsEnabled(FeatureDiscordNotifications, "bourgade-2"))

	ff.ClearTownOverrides("bourgade-1")
	assert.False(t, ff.IsEnabled(FeatureDiscordNotifications, "bourgade-1"))
}

func TestFeatureFlags_SetRolloutValidation(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.ErrorIs(t, ff.SetRolloutPercent("does.not.exist", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureAdminOverrides, 150), ErrInvalidRolloutPercent)
}
