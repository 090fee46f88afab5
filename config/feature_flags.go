package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles. Flags gate expedition mechanics that
// are rolled out town by town, so one server can host towns playing with
// different rule sets during a season transition.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	townOverrides map[string]map[string]bool // townID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Towns are assigned to buckets by a
	// consistent hash of their ID, so a town keeps its bucket across restarts.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// === Expedition mechanics ===
	FeatureEmergencyVotes   = "expedition.emergency_votes"   // majority vote forces an early return
	FeatureDirectionVoting  = "expedition.direction_voting"  // members pick the daily direction
	FeatureMergeOnTerminate = "expedition.merge_on_terminate" // dissolved expeditions return their stocks

	// === Integrations ===
	FeatureDiscordNotifications = "integration.discord_notifications" // post lifecycle embeds
	FeatureRedisCache           = "integration.redis_cache"           // cache expedition cards and lists

	// === Admin surface ===
	FeatureAdminOverrides = "admin.overrides" // force lock/depart/return/modify
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		townOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureEmergencyVotes] = &Feature{
		Name:           FeatureEmergencyVotes,
		Description:    "Emergency return votes while departed",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDirectionVoting] = &Feature{
		Name:           FeatureDirectionVoting,
		Description:    "Daily direction selection by members",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureMergeOnTerminate] = &Feature{
		Name:           FeatureMergeOnTerminate,
		Description:    "Return stocks to town when an expedition dissolves",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDiscordNotifications] = &Feature{
		Name:           FeatureDiscordNotifications,
		Description:    "Post expedition lifecycle events to Discord",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureRedisCache] = &Feature{
		Name:           FeatureRedisCache,
		Description:    "Cache expedition read models in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureAdminOverrides] = &Feature{
		Name:           FeatureAdminOverrides,
		Description:    "Administrative lifecycle overrides",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_EXPEDITION_EMERGENCY_VOTES=false
// Example: FEATURE_INTEGRATION_REDIS_CACHE=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "expedition.emergency_votes" -> "FEATURE_EXPEDITION_EMERGENCY_VOTES"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given town. An empty
// townID evaluates the flag globally (rollout counts as enabled only at 100%).
func (ff *FeatureFlags) IsEnabled(featureName, townID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if townID != "" {
		if overrides, ok := ff.townOverrides[townID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	if !feature.Enabled {
		return false
	}

	if feature.RolloutPercent >= 100 {
		return true
	}
	if townID == "" {
		return false
	}
	return ff.isInRollout(townID, featureName, feature.RolloutPercent)
}

// isInRollout determines if a town is in the rollout percentage.
func (ff *FeatureFlags) isInRollout(townID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(townID))
	bucket := int(h.Sum32() % 100)
	return bucket < percent
}

// SetTownOverride sets a feature override for a specific town.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetTownOverride(townID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.townOverrides[townID]; !ok {
		ff.townOverrides[townID] = make(map[string]bool)
	}
	ff.townOverrides[townID][featureName] = enabled
}

// ClearTownOverrides removes all overrides for a town.
func (ff *FeatureFlags) ClearTownOverrides(townID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.townOverrides, townID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
