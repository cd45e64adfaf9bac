package core

// ActionCategory classifies a proposed operation into a closed set of
// categories used by tier policy (denied / always-approval sets).
type ActionCategory string

const (
	// CategoryCreate covers operations that create new records or resources.
	CategoryCreate ActionCategory = "create"
	// CategoryRead covers read-only operations.
	CategoryRead ActionCategory = "read"
	// CategoryUpdate covers mutations of existing records.
	CategoryUpdate ActionCategory = "update"
	// CategoryDelete covers destructive operations.
	CategoryDelete ActionCategory = "delete"
	// CategoryExecute covers execution of external programs or jobs.
	CategoryExecute ActionCategory = "execute"
	// CategoryCommunicate covers outbound messages (mail, chat, webhooks).
	CategoryCommunicate ActionCategory = "communicate"
	// CategoryPurchase covers operations that spend money.
	CategoryPurchase ActionCategory = "purchase"
)

// RiskLevel is the ordered risk classification of an action.
type RiskLevel string

const (
	// RiskLow is the lowest risk classification.
	RiskLow RiskLevel = "low"
	// RiskMedium is the default risk classification.
	RiskMedium RiskLevel = "medium"
	// RiskHigh marks actions with significant blast radius.
	RiskHigh RiskLevel = "high"
	// RiskCritical marks actions that should rarely auto-approve.
	RiskCritical RiskLevel = "critical"
)

// riskRank maps risk levels onto their total order (low < medium < high < critical).
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the numeric position of the risk level in the total order.
// Unknown levels rank above critical so they never slip past a threshold.
func (r RiskLevel) Rank() int {
	if rank, ok := riskRank[r]; ok {
		return rank
	}
	return len(riskRank)
}

// Exceeds reports whether r is strictly riskier than other.
func (r RiskLevel) Exceeds(other RiskLevel) bool { return r.Rank() > other.Rank() }

// RequesterType identifies what kind of principal proposed an action
// (e.g. "agent", "workflow", "user"). Rate limits are keyed per user and
// requester type so autonomous traffic cannot starve interactive traffic.
type RequesterType string

const (
	// RequesterAgent marks actions proposed by an autonomous agent.
	RequesterAgent RequesterType = "agent"
	// RequesterWorkflow marks actions proposed by a scheduled workflow.
	RequesterWorkflow RequesterType = "workflow"
	// RequesterUser marks actions proposed directly by a human.
	RequesterUser RequesterType = "user"
)

// Action is a proposed operation submitted for permission evaluation.
// Treat as immutable once submitted.
type Action struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"` // Free-form operation name, e.g. "crm.contact.delete"
	Category      ActionCategory `json:"category"`
	RiskLevel     RiskLevel      `json:"risk_level"`
	MonetaryValue float64        `json:"monetary_value,omitempty"`
	AffectedCount int            `json:"affected_count,omitempty"` // e.g. rows a delete would touch
	RequesterType RequesterType  `json:"requester_type"`
}
