package model

import (
	"context"
	"fmt"
	"strings"
)

// Role tags a message with its conversational origin.
type Role string

const (
	// RoleSystem carries instructions framing the completion.
	RoleSystem Role = "system"
	// RoleUser carries the request content.
	RoleUser Role = "user"
	// RoleAssistant carries prior model output when continuing an exchange.
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged text message in a completion request.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required to drive a text completion.
// Implementations must honor context cancellation; the caller imposes any
// timeout and treats cancellation like a model failure.
type Model interface {
	// Complete submits the ordered messages and returns one text completion.
	Complete(ctx context.Context, messages []Message) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Canned responses are matched against a substring of the last user message;
// unmatched prompts receive a generic echo completion.
type MockModel struct {
	info      Info
	responses map[string]string
	err       error
	calls     int
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion returned when the last user
// message contains the given substring.
func (m *MockModel) AddResponse(substring, response string) { m.responses[substring] = response }

// Fail makes every subsequent Complete call return err.
func (m *MockModel) Fail(err error) { m.err = err }

// Calls returns how many times Complete has been invoked.
func (m *MockModel) Calls() int { return m.calls }

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, messages []Message) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	var lastUser string
	for _, msg := range messages {
		if msg.Role == RoleUser {
			lastUser = msg.Text
		}
	}
	for substring, response := range m.responses {
		if strings.Contains(lastUser, substring) {
			return response, nil
		}
	}
	return fmt.Sprintf("Mock response to: %s", lastUser), nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
