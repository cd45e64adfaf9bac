package trust

import (
	"testing"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTierConfigs_CoversEveryTier(t *testing.T) {
	cfgs := DefaultTierConfigs()
	for _, level := range core.TrustLevels() {
		cfg, ok := cfgs[level]
		require.True(t, ok, "missing configuration for tier %q", level)
		assert.Equal(t, level, cfg.Name)
	}
	assert.Len(t, cfgs, len(core.TrustLevels()))
}

func TestDefaultTierConfigs_Monotonic(t *testing.T) {
	cfgs := DefaultTierConfigs()
	levels := core.TrustLevels()
	for i := 1; i < len(levels); i++ {
		lower, higher := cfgs[levels[i-1]], cfgs[levels[i]]
		assert.LessOrEqual(t, lower.MaxBudgetPerAction, higher.MaxBudgetPerAction, "%s vs %s", levels[i-1], levels[i])
		assert.LessOrEqual(t, lower.MaxDailyBudget, higher.MaxDailyBudget)
		assert.LessOrEqual(t, lower.MaxActionsWithoutCheck, higher.MaxActionsWithoutCheck)
		assert.LessOrEqual(t, lower.ReviewInterval, higher.ReviewInterval)
	}
}

func TestTierOverride_FieldByFieldMerge(t *testing.T) {
	budget := 250.0
	interval := 45 * time.Minute
	cfgs := buildTierConfigs(map[core.TrustLevel]TierOverride{
		core.TrustStandard: {
			MaxBudgetPerAction: &budget,
			ReviewInterval:     &interval,
		},
	})

	standard := cfgs[core.TrustStandard]
	assert.Equal(t, 250.0, standard.MaxBudgetPerAction)
	assert.Equal(t, 45*time.Minute, standard.ReviewInterval)

	// Untouched fields keep the built-in defaults.
	defaults := DefaultTierConfigs()[core.TrustStandard]
	assert.Equal(t, defaults.MaxDailyBudget, standard.MaxDailyBudget)
	assert.Equal(t, defaults.MaxAutoApproveRisk, standard.MaxAutoApproveRisk)
	assert.Equal(t, defaults.AlwaysRequireApproval, standard.AlwaysRequireApproval)

	// Other tiers are untouched entirely.
	assert.Equal(t, DefaultTierConfigs()[core.TrustElevated], cfgs[core.TrustElevated])
}

func TestTierOverride_EmptySliceClearsSet(t *testing.T) {
	none := []core.ActionCategory{}
	cfgs := buildTierConfigs(map[core.TrustLevel]TierOverride{
		core.TrustRestricted: {DeniedActions: &none},
	})

	assert.Empty(t, cfgs[core.TrustRestricted].DeniedActions)
	// A nil pointer would have kept the default; the empty slice clears it.
	assert.NotEmpty(t, DefaultTierConfigs()[core.TrustRestricted].DeniedActions)
}

func TestBuildTierConfigs_IgnoresUnknownTier(t *testing.T) {
	budget := 1.0
	cfgs := buildTierConfigs(map[core.TrustLevel]TierOverride{
		core.TrustLevel("superuser"): {MaxBudgetPerAction: &budget},
	})

	assert.Len(t, cfgs, len(core.TrustLevels()), "the tier space never grows")
	_, ok := cfgs[core.TrustLevel("superuser")]
	assert.False(t, ok)
}

func TestHardLimitsOverride(t *testing.T) {
	amount := 10000.0
	limits := HardLimitsOverride{MaxTransactionAmount: &amount}.apply(DefaultHardLimits())

	assert.Equal(t, 10000.0, limits.MaxTransactionAmount)
	assert.Equal(t, DefaultHardLimits().MaxDeleteCount, limits.MaxDeleteCount)
	assert.Equal(t, DefaultHardLimits().MaxActionsPerMinute, limits.MaxActionsPerMinute)
}
