package llm

import (
	"context"
	"errors"
	"testing"

	anyllm "github.com/mozilla-ai/any-llm-go"
)

type fakeStatusErr struct{ code int }

func (e fakeStatusErr) Error() string  { return "fake status error" }
func (e fakeStatusErr) StatusCode() int { return e.code }

type fakeBackend struct {
	calls int
	err   error
}

func (b *fakeBackend) Completion(_ context.Context, _ anyllm.CompletionParams) (anyllm.CompletionResponse, error) {
	b.calls++
	return anyllm.CompletionResponse{}, b.err
}

func TestCompleteRetriesOnRetryableStatus(t *testing.T) {
	backend := &fakeBackend{err: fakeStatusErr{code: 503}}
	client := &anyLLMClient{backend: backend, model: "test-model"}

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Complete() error = nil, want error (backend always fails)")
	}
	if backend.calls != maxCompletionAttempts {
		t.Fatalf("calls = %d, want %d", backend.calls, maxCompletionAttempts)
	}
}

func TestCompleteDoesNotRetryOnNonRetryableStatus(t *testing.T) {
	backend := &fakeBackend{err: fakeStatusErr{code: 400}}
	client := &anyLLMClient{backend: backend, model: "test-model"}

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	if backend.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", backend.calls)
	}
}

func TestCompleteDoesNotRetryOnUntypedError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	client := &anyLLMClient{backend: backend, model: "test-model"}

	_, err := client.Complete(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("Complete() error = nil, want error")
	}
	if backend.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry without status code)", backend.calls)
	}
}
