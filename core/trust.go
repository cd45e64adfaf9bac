package core

import "time"

// TrustLevel is a named bucket of policy defaults (risk tolerance, budget
// ceilings, approval requirements) assigned to a user or session.
type TrustLevel string

const (
	// TrustRestricted is the lowest tier; most categories require approval.
	TrustRestricted TrustLevel = "restricted"
	// TrustStandard is the default tier for established sessions.
	TrustStandard TrustLevel = "standard"
	// TrustElevated grants wider auto-approval for vetted users.
	TrustElevated TrustLevel = "elevated"
	// TrustAutonomous is the widest tier, intended for supervised automation.
	TrustAutonomous TrustLevel = "autonomous"
)

// TrustLevels enumerates the tier space in ascending order of trust.
// Every level listed here has exactly one effective configuration.
func TrustLevels() []TrustLevel {
	return []TrustLevel{TrustRestricted, TrustStandard, TrustElevated, TrustAutonomous}
}

// Decision is the outcome class of a permission evaluation.
type Decision string

const (
	// DecisionAllow permits immediate execution.
	DecisionAllow Decision = "allow"
	// DecisionDeny blocks execution unconditionally.
	DecisionDeny Decision = "deny"
	// DecisionRequireApproval routes the action to a human approver.
	DecisionRequireApproval Decision = "require_approval"
	// DecisionRequire2FA permits execution once the user verifies a second factor.
	DecisionRequire2FA Decision = "require_2fa"
	// DecisionRequireManagerApproval routes the action to a manager-level approver.
	DecisionRequireManagerApproval Decision = "require_manager_approval"
	// DecisionQueueForReview holds the session for periodic human review.
	DecisionQueueForReview Decision = "queue_for_review"
)

// IsApprovalShaped reports whether the decision puts the action into a
// pending state that a human or second factor must release.
func (d Decision) IsApprovalShaped() bool {
	switch d {
	case DecisionRequireApproval, DecisionRequire2FA, DecisionRequireManagerApproval, DecisionQueueForReview:
		return true
	default:
		return false
	}
}

// HandoffReason classifies why an action was escalated, distinct from the
// decision itself.
type HandoffReason string

const (
	// HandoffTrustLevel means the tier's policy forced the escalation.
	HandoffTrustLevel HandoffReason = "trust_level"
	// HandoffRiskThreshold means the action's risk exceeded the tier ceiling.
	HandoffRiskThreshold HandoffReason = "risk_threshold"
	// HandoffBudgetLimit means a per-action or daily budget ceiling was hit.
	HandoffBudgetLimit HandoffReason = "budget_limit"
	// HandoffPeriodicReview means the review interval or action ceiling elapsed.
	HandoffPeriodicReview HandoffReason = "periodic_review"
	// HandoffErrorThreshold means the session accumulated too many errors.
	HandoffErrorThreshold HandoffReason = "error_threshold"
	// HandoffAnomaly means evaluation itself faulted and failed safe.
	HandoffAnomaly HandoffReason = "anomaly"
)

// CustomPermission is an ad-hoc per-context override granted by an operator.
// Target matches either an action category or an exact action type.
type CustomPermission struct {
	Target    string     `json:"target"`
	Decision  Decision   `json:"decision"`
	Reason    string     `json:"reason"`
	GrantedBy string     `json:"granted_by"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the grant has lapsed at time now.
func (p CustomPermission) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Matches reports whether the grant applies to the given action.
func (p CustomPermission) Matches(action Action) bool {
	return p.Target == string(action.Category) || p.Target == action.Type
}

// TrustContext is the per-session/user state consulted during evaluation.
// It is owned and mutated by the orchestrator between calls; the trust
// engine only reads it (rate and budget counters are tracked separately
// inside the engine).
type TrustContext struct {
	UserID             string             `json:"user_id"`
	Role               string             `json:"role"`
	TrustLevel         TrustLevel         `json:"trust_level"`
	TwoFactorVerified  bool               `json:"two_factor_verified"`
	LastHumanReview    time.Time          `json:"last_human_review"`
	SessionActionCount int                `json:"session_action_count"`
	SessionErrorCount  int                `json:"session_error_count"`
	DailyBudgetSpent   float64            `json:"daily_budget_spent"`
	CustomPermissions  []CustomPermission `json:"custom_permissions,omitempty"`
}

// PermissionResult is the outcome of evaluating one action against one
// trust context. Created fresh per evaluation and never mutated afterward.
type PermissionResult struct {
	Decision      Decision       `json:"decision"`
	Action        Action         `json:"action"`
	TrustLevel    TrustLevel     `json:"trust_level"`
	Reason        string         `json:"reason"`
	HandoffReason *HandoffReason `json:"handoff_reason,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`   // Set for approval-shaped decisions
	Alternatives  []string       `json:"alternatives,omitempty"` // Populated only for deny
}

// Allowed reports whether the action may execute immediately.
func (r PermissionResult) Allowed() bool { return r.Decision == DecisionAllow }

// Denied reports whether the action is blocked unconditionally.
func (r PermissionResult) Denied() bool { return r.Decision == DecisionDeny }
