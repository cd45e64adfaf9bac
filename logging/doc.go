// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug
// any structured logger. It also offers a richer GuardLogger with domain
// specific helpers for permission checks and conflict arbitration.
package logging
