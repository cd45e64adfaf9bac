package trust

import (
	"time"

	"github.com/hupe1980/agentguard/core"
)

// TrustLevelConfig is the static policy for one trust tier. Every tier in
// core.TrustLevels has exactly one effective configuration; overrides merge
// field-by-field onto the built-in default, never wholesale.
type TrustLevelConfig struct {
	Name                   core.TrustLevel
	DeniedActions          []core.ActionCategory // Unconditional deny
	AlwaysRequireApproval  []core.ActionCategory
	MaxAutoApproveRisk     core.RiskLevel
	MaxBudgetPerAction     float64
	MaxDailyBudget         float64
	MaxActionsWithoutCheck int
	ReviewInterval         time.Duration
	Require2FAForHighRisk  bool
	AllowManagerApproval   bool
}

// denies reports whether the tier forbids the category outright.
func (c TrustLevelConfig) denies(category core.ActionCategory) bool {
	return containsCategory(c.DeniedActions, category)
}

// requiresApproval reports whether the tier always routes the category to approval.
func (c TrustLevelConfig) requiresApproval(category core.ActionCategory) bool {
	return containsCategory(c.AlwaysRequireApproval, category)
}

func containsCategory(set []core.ActionCategory, category core.ActionCategory) bool {
	for _, c := range set {
		if c == category {
			return true
		}
	}
	return false
}

// TierOverride adjusts individual fields of a tier's built-in configuration.
// Nil fields keep the default.
type TierOverride struct {
	DeniedActions          *[]core.ActionCategory
	AlwaysRequireApproval  *[]core.ActionCategory
	MaxAutoApproveRisk     *core.RiskLevel
	MaxBudgetPerAction     *float64
	MaxDailyBudget         *float64
	MaxActionsWithoutCheck *int
	ReviewInterval         *time.Duration
	Require2FAForHighRisk  *bool
	AllowManagerApproval   *bool
}

// apply merges the override onto cfg field by field.
func (o TierOverride) apply(cfg TrustLevelConfig) TrustLevelConfig {
	if o.DeniedActions != nil {
		cfg.DeniedActions = *o.DeniedActions
	}
	if o.AlwaysRequireApproval != nil {
		cfg.AlwaysRequireApproval = *o.AlwaysRequireApproval
	}
	if o.MaxAutoApproveRisk != nil {
		cfg.MaxAutoApproveRisk = *o.MaxAutoApproveRisk
	}
	if o.MaxBudgetPerAction != nil {
		cfg.MaxBudgetPerAction = *o.MaxBudgetPerAction
	}
	if o.MaxDailyBudget != nil {
		cfg.MaxDailyBudget = *o.MaxDailyBudget
	}
	if o.MaxActionsWithoutCheck != nil {
		cfg.MaxActionsWithoutCheck = *o.MaxActionsWithoutCheck
	}
	if o.ReviewInterval != nil {
		cfg.ReviewInterval = *o.ReviewInterval
	}
	if o.Require2FAForHighRisk != nil {
		cfg.Require2FAForHighRisk = *o.Require2FAForHighRisk
	}
	if o.AllowManagerApproval != nil {
		cfg.AllowManagerApproval = *o.AllowManagerApproval
	}
	return cfg
}

// HardLimits are global ceilings that apply regardless of trust tier.
// They are evaluated before any tier policy and can only deny, never allow.
type HardLimits struct {
	MaxTransactionAmount float64
	MaxDeleteCount       int
	MaxActionsPerMinute  int
}

// HardLimitsOverride adjusts individual hard limits. Nil fields keep the default.
type HardLimitsOverride struct {
	MaxTransactionAmount *float64
	MaxDeleteCount       *int
	MaxActionsPerMinute  *int
}

// apply merges the override onto limits field by field.
func (o HardLimitsOverride) apply(limits HardLimits) HardLimits {
	if o.MaxTransactionAmount != nil {
		limits.MaxTransactionAmount = *o.MaxTransactionAmount
	}
	if o.MaxDeleteCount != nil {
		limits.MaxDeleteCount = *o.MaxDeleteCount
	}
	if o.MaxActionsPerMinute != nil {
		limits.MaxActionsPerMinute = *o.MaxActionsPerMinute
	}
	return limits
}

// DefaultHardLimits returns the built-in global ceilings.
func DefaultHardLimits() HardLimits {
	return HardLimits{
		MaxTransactionAmount: 50000,
		MaxDeleteCount:       1000,
		MaxActionsPerMinute:  60,
	}
}

// DefaultTierConfigs returns the built-in configuration for every tier.
func DefaultTierConfigs() map[core.TrustLevel]TrustLevelConfig {
	return map[core.TrustLevel]TrustLevelConfig{
		core.TrustRestricted: {
			Name:                   core.TrustRestricted,
			DeniedActions:          []core.ActionCategory{core.CategoryDelete, core.CategoryPurchase, core.CategoryExecute},
			AlwaysRequireApproval:  []core.ActionCategory{core.CategoryUpdate, core.CategoryCommunicate},
			MaxAutoApproveRisk:     core.RiskLow,
			MaxBudgetPerAction:     0,
			MaxDailyBudget:         0,
			MaxActionsWithoutCheck: 10,
			ReviewInterval:         30 * time.Minute,
			Require2FAForHighRisk:  true,
			AllowManagerApproval:   false,
		},
		core.TrustStandard: {
			Name:                   core.TrustStandard,
			DeniedActions:          []core.ActionCategory{},
			AlwaysRequireApproval:  []core.ActionCategory{core.CategoryDelete, core.CategoryPurchase},
			MaxAutoApproveRisk:     core.RiskMedium,
			MaxBudgetPerAction:     100,
			MaxDailyBudget:         500,
			MaxActionsWithoutCheck: 50,
			ReviewInterval:         2 * time.Hour,
			Require2FAForHighRisk:  true,
			AllowManagerApproval:   true,
		},
		core.TrustElevated: {
			Name:                   core.TrustElevated,
			DeniedActions:          []core.ActionCategory{},
			AlwaysRequireApproval:  []core.ActionCategory{core.CategoryPurchase},
			MaxAutoApproveRisk:     core.RiskHigh,
			MaxBudgetPerAction:     1000,
			MaxDailyBudget:         5000,
			MaxActionsWithoutCheck: 200,
			ReviewInterval:         8 * time.Hour,
			Require2FAForHighRisk:  true,
			AllowManagerApproval:   true,
		},
		core.TrustAutonomous: {
			Name:                   core.TrustAutonomous,
			DeniedActions:          []core.ActionCategory{},
			AlwaysRequireApproval:  []core.ActionCategory{},
			MaxAutoApproveRisk:     core.RiskHigh,
			MaxBudgetPerAction:     10000,
			MaxDailyBudget:         50000,
			MaxActionsWithoutCheck: 1000,
			ReviewInterval:         24 * time.Hour,
			Require2FAForHighRisk:  false,
			AllowManagerApproval:   true,
		},
	}
}

// buildTierConfigs merges the given overrides onto the built-in defaults.
func buildTierConfigs(overrides map[core.TrustLevel]TierOverride) map[core.TrustLevel]TrustLevelConfig {
	cfgs := DefaultTierConfigs()
	for level, override := range overrides {
		base, ok := cfgs[level]
		if !ok {
			continue // Unknown tier names are ignored rather than grown into the tier space
		}
		cfgs[level] = override.apply(base)
	}
	return cfgs
}
