// Package conflict implements conflict detection and arbitration across
// concurrently produced agent results.
//
// Detection applies three independent heuristics (contradictory
// recommendations, factual disagreement, incompatible output shapes) to the
// results for one task and keeps only the most severe finding as a
// ConflictReport. The Arbiter owns every report's lifecycle
// (detected → analyzing → resolved|escalated) and turns it into a
// Resolution using a per-type strategy table, including a language-model
// backed arbitration strategy that degrades to highest-confidence on any
// collaborator failure.
package conflict
