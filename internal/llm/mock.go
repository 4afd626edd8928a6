package llm

import (
	"context"
	"strings"
)

// MockClient is a deterministic offline Client, selected when LLM_PROVIDER
// is "mock" (the default when it is unset); no credentials are consulted
// in that choice. It never calls out
// over the network, making it suitable for tests and for operators who
// haven't wired a real provider yet.
//
// It recognizes the two prompts this codebase actually sends (moderation
// classification and follow-up generation/decision) by sniffing the system
// prompt, and otherwise returns a fixed placeholder.
type MockClient struct{}

// NewMock returns a MockClient.
func NewMock() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	lowerSys := strings.ToLower(systemPrompt)

	switch {
	case strings.Contains(lowerSys, "moderat"):
		return "safe", nil
	case strings.Contains(lowerSys, "deciding whether"):
		return "false", nil
	case strings.Contains(lowerSys, "generating one natural follow-up"):
		return mockFollowup(userPrompt), nil
	default:
		return "", nil
	}
}

func mockFollowup(_ string) string {
	return "Can you tell me more about that?"
}
