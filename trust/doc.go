// Package trust implements the trust evaluation engine: the component that
// decides whether a single proposed agent action may execute. Every action
// passes through a fixed pipeline — hard limits, rate limits, custom
// evaluators, custom permissions, tier policy, budget and periodic-review
// checks — and the first definitive result wins.
//
// The engine is fail-safe over fail-open: any internal fault during
// evaluation converts to a require-approval result, never to allow.
package trust
