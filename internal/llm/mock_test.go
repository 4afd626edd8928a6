package llm

import (
	"context"
	"testing"
)

func TestMockClientClassifiesModerationAsSafe(t *testing.T) {
	c := NewMock()
	out, err := c.Complete(context.Background(), "You are a moderation classifier.", "Question: ... Reply: ...")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "safe" {
		t.Fatalf("Complete() = %q, want %q", out, "safe")
	}
}

func TestMockClientFollowupDecisionDefaultsFalse(t *testing.T) {
	c := NewMock()
	out, err := c.Complete(context.Background(), "You are deciding whether a behavioral interview should ask a follow-up question.", "...")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "false" {
		t.Fatalf("Complete() = %q, want %q", out, "false")
	}
}

func TestMockClientGeneratesFollowupText(t *testing.T) {
	c := NewMock()
	out, err := c.Complete(context.Background(), "You are an interviewer generating one natural follow-up question.", "...")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out == "" {
		t.Fatalf("Complete() returned empty follow-up text")
	}
}

func TestNewRejectsEmptyModel(t *testing.T) {
	if _, err := New("mock", ""); err == nil {
		t.Fatalf("New() error = nil, want error for empty model")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	if _, err := New("not-a-real-provider", "some-model"); err == nil {
		t.Fatalf("New() error = nil, want error for unknown provider")
	}
}
