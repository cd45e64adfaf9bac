// Package model defines the provider-agnostic contract AgentGuard uses to
// talk to a language-model collaborator: submit an ordered list of
// role-tagged messages, receive one text completion.
//
// Core goals:
//   - Keep the collaborator opaque so arbitration never depends on a vendor
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from
// this package so the conflict arbitration engine remains decoupled from
// vendor SDKs.
package model
