package trust

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/lifecycle"
	"github.com/hupe1980/agentguard/logging"
)

const (
	// approvalTTL bounds how long an approval-shaped decision stays actionable.
	approvalTTL = 30 * time.Minute

	// sessionErrorLimit is the session error count that forces a review handoff.
	sessionErrorLimit = 5

	// batchAdviceThreshold is the affected-row count above which a denied
	// action gets batching advice.
	batchAdviceThreshold = 100
)

// Options configures an Engine. Tier and hard-limit overrides are applied
// once at construction; runtime mutation is limited to evaluator
// registration and tracker resets.
type Options struct {
	// TierOverrides merge field-by-field onto the built-in tier defaults.
	TierOverrides map[core.TrustLevel]TierOverride

	// HardLimits merge field-by-field onto the built-in global ceilings.
	HardLimits HardLimitsOverride

	// StrictEvaluators escalates evaluator faults to require-approval
	// instead of skipping the faulty evaluator.
	StrictEvaluators bool

	// Bus receives permission.checked lifecycle events. Optional.
	Bus *lifecycle.Bus

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// Clock overrides time.Now, intended for tests.
	Clock func() time.Time
}

// Engine evaluates proposed actions against trust tiers, hard ceilings,
// rate limits and budgets. Construct once at service start and pass by
// handle; all state is process-lifetime only.
type Engine struct {
	cfgs   map[core.TrustLevel]TrustLevelConfig
	hard   HardLimits
	strict bool
	bus    *lifecycle.Bus
	logger logging.Logger
	now    func() time.Time

	mu         sync.RWMutex
	evaluators []Evaluator

	rates   *rateTracker
	budgets *budgetTracker
}

// NewEngine constructs an Engine with optional overrides.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		cfgs:    buildTierConfigs(opts.TierOverrides),
		hard:    opts.HardLimits.apply(DefaultHardLimits()),
		strict:  opts.StrictEvaluators,
		bus:     opts.Bus,
		logger:  opts.Logger,
		now:     opts.Clock,
		rates:   newRateTracker(),
		budgets: newBudgetTracker(),
	}
}

// TierConfig returns the effective configuration for the given tier.
// Unknown tiers fall back to the restricted configuration.
func (e *Engine) TierConfig(level core.TrustLevel) TrustLevelConfig {
	if cfg, ok := e.cfgs[level]; ok {
		return cfg
	}
	return e.cfgs[core.TrustRestricted]
}

// HardLimits returns the effective global ceilings.
func (e *Engine) HardLimits() HardLimits { return e.hard }

// CheckPermission evaluates one proposed action against the trust context
// and returns a decision. It never returns an error: any internal fault is
// converted to a fail-safe require-approval result tagged with the anomaly
// handoff reason.
//
// Evaluation is intentionally not pure: a passing budget check advances the
// tracked daily spend and every call consumes rate-limit window budget, so
// two calls with identical inputs within one window differ only by those
// counters advancing.
func (e *Engine) CheckPermission(action core.Action, tc core.TrustContext) (result core.PermissionResult) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("permission evaluation fault", "action_id", action.ID, "panic", r)
			result = e.anomalyResult(action, tc, fmt.Sprintf("evaluation fault: %v", r))
		}
		e.logger.Debug("permission checked", "action_type", action.Type, "decision", result.Decision, "elapsed", e.now().Sub(start))
		if e.bus != nil {
			e.bus.Publish(lifecycle.NewEvent(lifecycle.EventPermissionChecked, result))
		}
	}()

	result = e.evaluate(action, tc)
	return result
}

// CheckPermissions evaluates a batch of actions independently, in order.
func (e *Engine) CheckPermissions(actions []core.Action, tc core.TrustContext) []core.PermissionResult {
	results := make([]core.PermissionResult, len(actions))
	for i, action := range actions {
		results[i] = e.CheckPermission(action, tc)
	}
	return results
}

// evaluate runs the ordered pipeline; the first definitive result wins.
func (e *Engine) evaluate(action core.Action, tc core.TrustContext) core.PermissionResult {
	now := e.now()
	cfg := e.TierConfig(tc.TrustLevel)

	// 1. Hard limits: global, deny-only, not overridable by any tier policy.
	if e.hard.MaxTransactionAmount > 0 && action.MonetaryValue > e.hard.MaxTransactionAmount {
		return e.deny(action, tc, cfg,
			fmt.Sprintf("monetary value %.2f exceeds the global transaction limit %.2f", action.MonetaryValue, e.hard.MaxTransactionAmount))
	}
	if action.Category == core.CategoryDelete && e.hard.MaxDeleteCount > 0 && action.AffectedCount > e.hard.MaxDeleteCount {
		return e.deny(action, tc, cfg,
			fmt.Sprintf("delete of %d records exceeds the global limit of %d", action.AffectedCount, e.hard.MaxDeleteCount))
	}

	// 2. Rate limit per (user, requester type).
	if !e.rates.allow(tc.UserID, action.RequesterType, e.hard.MaxActionsPerMinute, now) {
		return e.deny(action, tc, cfg,
			fmt.Sprintf("rate limit of %d actions per minute reached", e.hard.MaxActionsPerMinute))
	}

	// 3. Custom evaluators, descending priority; a final verdict stops the chain.
	if result, done := e.runEvaluators(action, tc, cfg); done {
		return result
	}

	// 4. Custom permissions on the context: first matching non-expired
	// entry returns its recorded decision verbatim.
	for _, perm := range tc.CustomPermissions {
		if perm.Expired(now) || !perm.Matches(action) {
			continue
		}
		return e.result(action, tc, cfg, perm.Decision,
			fmt.Sprintf("custom permission by %s: %s", perm.GrantedBy, perm.Reason), nil)
	}

	// 5. Tier denied categories.
	if cfg.denies(action.Category) {
		return e.deny(action, tc, cfg,
			fmt.Sprintf("category %q is denied at trust level %q", action.Category, tc.TrustLevel))
	}

	// 6. Always-approval categories.
	if cfg.requiresApproval(action.Category) {
		reason := fmt.Sprintf("category %q always requires approval at trust level %q", action.Category, tc.TrustLevel)
		handoff := core.HandoffTrustLevel
		if cfg.AllowManagerApproval {
			return e.result(action, tc, cfg, core.DecisionRequireManagerApproval, reason, &handoff)
		}
		return e.result(action, tc, cfg, core.DecisionRequireApproval, reason, &handoff)
	}

	// 7. Risk threshold: 2FA substitutes for human approval when it would
	// satisfy the requirement.
	if action.RiskLevel.Exceeds(cfg.MaxAutoApproveRisk) {
		reason := fmt.Sprintf("risk %q exceeds the auto-approve ceiling %q", action.RiskLevel, cfg.MaxAutoApproveRisk)
		handoff := core.HandoffRiskThreshold
		if cfg.Require2FAForHighRisk && !tc.TwoFactorVerified && action.RiskLevel.Rank() >= core.RiskHigh.Rank() {
			return e.result(action, tc, cfg, core.DecisionRequire2FA, reason, &handoff)
		}
		return e.result(action, tc, cfg, core.DecisionRequireApproval, reason, &handoff)
	}

	// 8. Budget: per-action ceiling, then the running daily ceiling. A
	// passing daily check records the spend as a side effect.
	if action.MonetaryValue > 0 {
		handoff := core.HandoffBudgetLimit
		if action.MonetaryValue > cfg.MaxBudgetPerAction {
			return e.result(action, tc, cfg, core.DecisionRequireApproval,
				fmt.Sprintf("monetary value %.2f exceeds the per-action budget %.2f", action.MonetaryValue, cfg.MaxBudgetPerAction), &handoff)
		}
		if !e.budgets.charge(tc.UserID, action.MonetaryValue, cfg.MaxDailyBudget, now) {
			return e.result(action, tc, cfg, core.DecisionRequireApproval,
				fmt.Sprintf("daily budget %.2f would be exceeded", cfg.MaxDailyBudget), &handoff)
		}
	}

	// 9. Periodic/session handoff.
	if needed, handoff, reason := e.handoff(tc, cfg, now); needed {
		return e.result(action, tc, cfg, core.DecisionQueueForReview, reason, &handoff)
	}

	// 10. Allow.
	return e.result(action, tc, cfg, core.DecisionAllow, "within trust level policy", nil)
}

// runEvaluators executes the registered evaluators in descending priority
// order. The boolean reports whether a definitive result was produced.
func (e *Engine) runEvaluators(action core.Action, tc core.TrustContext, cfg TrustLevelConfig) (core.PermissionResult, bool) {
	e.mu.RLock()
	evaluators := make([]Evaluator, len(e.evaluators))
	copy(evaluators, e.evaluators)
	e.mu.RUnlock()

	sort.SliceStable(evaluators, func(i, j int) bool {
		return evaluators[i].Priority() > evaluators[j].Priority()
	})

	for _, ev := range evaluators {
		verdict, err := ev.Evaluate(action, tc, cfg)
		if err != nil {
			if e.strict {
				return e.anomalyResult(action, tc, fmt.Sprintf("evaluator %q failed: %v", ev.Name(), err)), true
			}
			e.logger.Warn("evaluator failed, skipping", "evaluator", ev.Name(), "error", err)
			continue
		}
		if verdict == nil {
			continue
		}
		if verdict.Final {
			return e.result(action, tc, cfg, verdict.Decision, verdict.Reason, nil), true
		}
		// Non-final verdicts count only when they decide something other
		// than allow; an allow opinion defers to the rest of the pipeline.
		if verdict.Decision != core.DecisionAllow {
			return e.result(action, tc, cfg, verdict.Decision, verdict.Reason, nil), true
		}
	}
	return core.PermissionResult{}, false
}

// handoff implements the four periodic/session review conditions.
func (e *Engine) handoff(tc core.TrustContext, cfg TrustLevelConfig, now time.Time) (bool, core.HandoffReason, string) {
	// A zero LastHumanReview marks a fresh session, not an overdue one.
	if !tc.LastHumanReview.IsZero() && cfg.ReviewInterval > 0 && now.Sub(tc.LastHumanReview) > cfg.ReviewInterval {
		return true, core.HandoffPeriodicReview,
			fmt.Sprintf("last human review was more than %s ago", cfg.ReviewInterval)
	}
	if cfg.MaxActionsWithoutCheck > 0 && tc.SessionActionCount >= cfg.MaxActionsWithoutCheck {
		return true, core.HandoffPeriodicReview,
			fmt.Sprintf("session reached %d actions without a check", tc.SessionActionCount)
	}
	if tc.SessionErrorCount >= sessionErrorLimit {
		return true, core.HandoffErrorThreshold,
			fmt.Sprintf("session accumulated %d errors", tc.SessionErrorCount)
	}
	if cfg.MaxDailyBudget > 0 && tc.DailyBudgetSpent >= cfg.MaxDailyBudget {
		return true, core.HandoffBudgetLimit,
			fmt.Sprintf("daily spend %.2f is at or above the daily budget %.2f", tc.DailyBudgetSpent, cfg.MaxDailyBudget)
	}
	return false, "", ""
}

// RequiresHandoff reports whether the session needs a human checkpoint,
// independent of any concrete action. It mirrors the pipeline's periodic/
// session conditions for callers that only need that check.
func (e *Engine) RequiresHandoff(tc core.TrustContext) (bool, core.HandoffReason) {
	needed, reason, _ := e.handoff(tc, e.TierConfig(tc.TrustLevel), e.now())
	return needed, reason
}

// Requires2FA reports whether the action needs a second factor: the user
// is not yet verified this session and either the tier requires 2FA for
// high risk and the action meets that bar, or the action's monetary value
// exceeds the tier's per-action budget.
func (e *Engine) Requires2FA(action core.Action, tc core.TrustContext) bool {
	if tc.TwoFactorVerified {
		return false
	}
	cfg := e.TierConfig(tc.TrustLevel)
	if cfg.Require2FAForHighRisk && action.RiskLevel.Rank() >= core.RiskHigh.Rank() {
		return true
	}
	return action.MonetaryValue > cfg.MaxBudgetPerAction
}

// IsActionTypeAllowed reports whether the category is not outright denied
// at the given trust level.
func (e *Engine) IsActionTypeAllowed(category core.ActionCategory, level core.TrustLevel) bool {
	return !e.TierConfig(level).denies(category)
}

// MaxAllowedRisk returns the tier's auto-approve risk ceiling.
func (e *Engine) MaxAllowedRisk(level core.TrustLevel) core.RiskLevel {
	return e.TierConfig(level).MaxAutoApproveRisk
}

// RegisterEvaluator adds a custom evaluator to the chain.
func (e *Engine) RegisterEvaluator(ev Evaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluators = append(e.evaluators, ev)
}

// RemoveEvaluator removes the named evaluator, reporting whether it existed.
func (e *Engine) RemoveEvaluator(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, ev := range e.evaluators {
		if ev.Name() == name {
			e.evaluators = append(e.evaluators[:i], e.evaluators[i+1:]...)
			return true
		}
	}
	return false
}

// ResetRateLimits clears all rate-limit windows. Administrative use only.
func (e *Engine) ResetRateLimits() { e.rates.reset() }

// ResetBudgets clears all tracked daily spend. Administrative use only.
func (e *Engine) ResetBudgets() { e.budgets.reset() }

// result builds an immutable PermissionResult, attaching the approval
// expiry for approval-shaped decisions and alternatives for denials.
func (e *Engine) result(action core.Action, tc core.TrustContext, cfg TrustLevelConfig, decision core.Decision, reason string, handoff *core.HandoffReason) core.PermissionResult {
	r := core.PermissionResult{
		Decision:      decision,
		Action:        action,
		TrustLevel:    tc.TrustLevel,
		Reason:        reason,
		HandoffReason: handoff,
	}
	if decision.IsApprovalShaped() {
		expires := e.now().Add(approvalTTL)
		r.ExpiresAt = &expires
	}
	if decision == core.DecisionDeny {
		r.Alternatives = e.alternatives(action, cfg)
	}
	return r
}

// deny is a convenience wrapper for denial results.
func (e *Engine) deny(action core.Action, tc core.TrustContext, cfg TrustLevelConfig, reason string) core.PermissionResult {
	return e.result(action, tc, cfg, core.DecisionDeny, reason, nil)
}

// anomalyResult is the fail-safe conversion for internal faults.
func (e *Engine) anomalyResult(action core.Action, tc core.TrustContext, reason string) core.PermissionResult {
	handoff := core.HandoffAnomaly
	return e.result(action, tc, e.TierConfig(tc.TrustLevel), core.DecisionRequireApproval, reason, &handoff)
}

// alternatives produces deterministic suggestions attached to denials.
func (e *Engine) alternatives(action core.Action, cfg TrustLevelConfig) []string {
	var alts []string
	if action.Category == core.CategoryDelete {
		alts = append(alts, "Soft-delete or archive the records instead of deleting them")
	}
	if cfg.MaxBudgetPerAction > 0 && action.MonetaryValue > cfg.MaxBudgetPerAction {
		alts = append(alts, fmt.Sprintf("Split the transaction into amounts of at most %.2f", cfg.MaxBudgetPerAction))
	}
	if action.AffectedCount > batchAdviceThreshold {
		alts = append(alts, fmt.Sprintf("Process the %d records in smaller batches", action.AffectedCount))
	}
	alts = append(alts,
		"Request human approval for this action",
		"Request a trust level elevation",
	)
	return alts
}
