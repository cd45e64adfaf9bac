// Package core provides the foundational domain types used by AgentGuard.
// It defines the shared vocabulary for:
//
//   - Actions (proposed agent operations with category, risk and cost)
//   - Trust contexts (per-session state the orchestrator owns)
//   - Permission results (allow / deny / escalation decisions)
//   - Agent results and conflict reports (disagreement across agents)
//   - Resolutions (the outcome of arbitrating a conflict)
//
// The package intentionally keeps implementation concerns (evaluation
// pipelines, arbitration strategies, trackers) out of scope; those live in
// the trust and conflict packages which consume these types.
package core
