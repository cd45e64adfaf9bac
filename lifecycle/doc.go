// Package lifecycle implements the fire-and-forget event bus both engines
// use to publish named lifecycle notifications (permission checked,
// conflict detected / analyzing / resolved / escalated) to external
// subscribers such as a UI broadcaster. Subscriber failures are isolated
// from engine control flow: a subscriber that returns an error or panics
// is logged and skipped, never propagated.
package lifecycle
