// Package config loads Guard options from a YAML file. Environment
// variables in the file are expanded before parsing, and the result is
// validated against the known tier, category, risk and strategy names so
// a typo fails at load time instead of silently falling back to defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentguard"
	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/trust"
)

// Config is the YAML representation of the governance options supplied at
// construction. Nil fields keep built-in defaults.
type Config struct {
	StrictEvaluators bool                  `yaml:"strict_evaluators"`
	HardLimits       HardLimitsConfig      `yaml:"hard_limits"`
	Tiers            map[string]TierConfig `yaml:"tiers"`
	Strategies       map[string]string     `yaml:"strategies"`
	Authorities      map[string][]string   `yaml:"authorities"`
}

// HardLimitsConfig mirrors trust.HardLimitsOverride in YAML form.
type HardLimitsConfig struct {
	MaxTransactionAmount *float64 `yaml:"max_transaction_amount"`
	MaxDeleteCount       *int     `yaml:"max_delete_count"`
	MaxActionsPerMinute  *int     `yaml:"max_actions_per_minute"`
}

// TierConfig mirrors trust.TierOverride in YAML form.
type TierConfig struct {
	DeniedActions          *[]string `yaml:"denied_actions"`
	AlwaysRequireApproval  *[]string `yaml:"always_require_approval"`
	MaxAutoApproveRisk     *string   `yaml:"max_auto_approve_risk"`
	MaxBudgetPerAction     *float64  `yaml:"max_budget_per_action"`
	MaxDailyBudget         *float64  `yaml:"max_daily_budget"`
	MaxActionsWithoutCheck *int      `yaml:"max_actions_without_check"`
	ReviewIntervalMinutes  *int      `yaml:"review_interval_minutes"`
	Require2FAForHighRisk  *bool     `yaml:"require_2fa_for_high_risk"`
	AllowManagerApproval   *bool     `yaml:"allow_manager_approval"`
}

// Load reads, expands and validates the YAML file at path.
func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks every name in the file against the known vocabulary.
func (c Config) Validate() error {
	for tier := range c.Tiers {
		if !knownTier(tier) {
			return fmt.Errorf("unknown trust tier %q", tier)
		}
	}
	for tier, tc := range c.Tiers {
		if tc.MaxAutoApproveRisk != nil && !knownRisk(*tc.MaxAutoApproveRisk) {
			return fmt.Errorf("tier %q: unknown risk level %q", tier, *tc.MaxAutoApproveRisk)
		}
		for _, set := range []*[]string{tc.DeniedActions, tc.AlwaysRequireApproval} {
			if set == nil {
				continue
			}
			for _, category := range *set {
				if !knownCategory(category) {
					return fmt.Errorf("tier %q: unknown action category %q", tier, category)
				}
			}
		}
	}
	for conflictType, strategy := range c.Strategies {
		if !knownConflictType(conflictType) {
			return fmt.Errorf("unknown conflict type %q", conflictType)
		}
		if !knownStrategy(strategy) {
			return fmt.Errorf("conflict type %q: unknown strategy %q", conflictType, strategy)
		}
	}
	return nil
}

// Apply converts the file contents into Guard options.
func (c Config) Apply(o *agentguard.Options) {
	o.StrictEvaluators = c.StrictEvaluators
	o.HardLimits = trust.HardLimitsOverride{
		MaxTransactionAmount: c.HardLimits.MaxTransactionAmount,
		MaxDeleteCount:       c.HardLimits.MaxDeleteCount,
		MaxActionsPerMinute:  c.HardLimits.MaxActionsPerMinute,
	}

	if len(c.Tiers) > 0 {
		o.TierOverrides = make(map[core.TrustLevel]trust.TierOverride, len(c.Tiers))
		for tier, tc := range c.Tiers {
			o.TierOverrides[core.TrustLevel(tier)] = tc.toOverride()
		}
	}
	if len(c.Strategies) > 0 {
		o.Strategies = make(map[core.ConflictType]core.Strategy, len(c.Strategies))
		for conflictType, strategy := range c.Strategies {
			o.Strategies[core.ConflictType(conflictType)] = core.Strategy(strategy)
		}
	}
	if len(c.Authorities) > 0 {
		o.Authorities = c.Authorities
	}
}

func (tc TierConfig) toOverride() trust.TierOverride {
	override := trust.TierOverride{
		MaxBudgetPerAction:     tc.MaxBudgetPerAction,
		MaxDailyBudget:         tc.MaxDailyBudget,
		MaxActionsWithoutCheck: tc.MaxActionsWithoutCheck,
		Require2FAForHighRisk:  tc.Require2FAForHighRisk,
		AllowManagerApproval:   tc.AllowManagerApproval,
	}
	if tc.DeniedActions != nil {
		categories := toCategories(*tc.DeniedActions)
		override.DeniedActions = &categories
	}
	if tc.AlwaysRequireApproval != nil {
		categories := toCategories(*tc.AlwaysRequireApproval)
		override.AlwaysRequireApproval = &categories
	}
	if tc.MaxAutoApproveRisk != nil {
		risk := core.RiskLevel(*tc.MaxAutoApproveRisk)
		override.MaxAutoApproveRisk = &risk
	}
	if tc.ReviewIntervalMinutes != nil {
		interval := time.Duration(*tc.ReviewIntervalMinutes) * time.Minute
		override.ReviewInterval = &interval
	}
	return override
}

func toCategories(names []string) []core.ActionCategory {
	out := make([]core.ActionCategory, len(names))
	for i, name := range names {
		out[i] = core.ActionCategory(name)
	}
	return out
}

func knownTier(name string) bool {
	for _, tier := range core.TrustLevels() {
		if string(tier) == name {
			return true
		}
	}
	return false
}

func knownRisk(name string) bool {
	switch core.RiskLevel(name) {
	case core.RiskLow, core.RiskMedium, core.RiskHigh, core.RiskCritical:
		return true
	default:
		return false
	}
}

func knownCategory(name string) bool {
	switch core.ActionCategory(name) {
	case core.CategoryCreate, core.CategoryRead, core.CategoryUpdate, core.CategoryDelete,
		core.CategoryExecute, core.CategoryCommunicate, core.CategoryPurchase:
		return true
	default:
		return false
	}
}

func knownConflictType(name string) bool {
	switch core.ConflictType(name) {
	case core.ConflictContradictory, core.ConflictIncompatibleOutputs, core.ConflictResourceContention,
		core.ConflictPriority, core.ConflictDomainOverlap, core.ConflictFactualDisagreement, core.ConflictTimeout:
		return true
	default:
		return false
	}
}

func knownStrategy(name string) bool {
	switch core.Strategy(name) {
	case core.StrategyMajorityVote, core.StrategyHighestConfidence, core.StrategyPriorityBased,
		core.StrategyMerge, core.StrategyLLMArbitration, core.StrategyConservative, core.StrategyHumanEscalation:
		return true
	default:
		return false
	}
}
