package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldnotes-ai/interviewer/internal/memory"
)

type stubClient struct {
	out string
	err error
}

func (s stubClient) Complete(_ context.Context, _, _ string) (string, error) {
	return s.out, s.err
}

func TestShouldGenerateRecordsExchangeOnFirstCall(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{out: "true"}, store)

	a.ShouldGenerate(context.Background(), "s1", "leadership", "Tell me about leading a team.", "I led a migration.", 10, 5, 0, 0)

	if !store.Has("s1", "leadership") {
		t.Fatalf("ShouldGenerate() did not start the topic in memory")
	}
}

func TestShouldGenerateAppendsOnSubsequentCalls(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{out: "true"}, store)

	a.ShouldGenerate(context.Background(), "s1", "leadership", "main q", "main a", 10, 5, 0, 0)
	a.ShouldGenerate(context.Background(), "s1", "leadership", "follow q", "follow a", 8, 7, 1, 0)

	entry, ok := store.History("s1", "leadership")
	if !ok || len(entry.Followups) != 1 {
		t.Fatalf("expected one topic with one followup, got %+v (ok=%v)", entry, ok)
	}
}

func TestShouldGenerateParsesFalse(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{out: "False"}, store)
	if got := a.ShouldGenerate(context.Background(), "s1", "t", "q", "a", 10, 1, 0, 0); got {
		t.Fatalf("ShouldGenerate() = true, want false")
	}
}

func TestShouldGenerateDefaultsTrueOnClientError(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{err: errors.New("provider down")}, store)
	if got := a.ShouldGenerate(context.Background(), "s1", "t", "q", "a", 10, 1, 0, 0); !got {
		t.Fatalf("ShouldGenerate() = false, want true on error")
	}
}

func TestShouldGenerateDefaultsTrueOnAmbiguousOutput(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{out: "unclear"}, store)
	if got := a.ShouldGenerate(context.Background(), "s1", "t", "q", "a", 10, 1, 0, 0); !got {
		t.Fatalf("ShouldGenerate() = false, want true on ambiguous output")
	}
}

func TestGenerateReturnsTrimmedQuestionAndRecordsExchange(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{out: "  What made that decision difficult?  "}, store)

	got, err := a.Generate(context.Background(), "s1", "leadership", "main q", "main a")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "What made that decision difficult?" {
		t.Fatalf("Generate() = %q, want trimmed text", got)
	}
	if !store.Has("s1", "leadership") {
		t.Fatalf("Generate() did not record the exchange")
	}
}

func TestGeneratePropagatesClientError(t *testing.T) {
	store := memory.NewStore(time.Hour)
	a := New(stubClient{err: errors.New("provider down")}, store)
	if _, err := a.Generate(context.Background(), "s1", "t", "q", "a"); err == nil {
		t.Fatalf("Generate() error = nil, want error")
	}
}
