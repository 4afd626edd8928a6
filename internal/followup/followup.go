// Package followup decides whether to ask a candidate a follow-up question
// and, if so, generates its text, consulting the full topic history held in
// working memory.
package followup

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldnotes-ai/interviewer/internal/llm"
	"github.com/fieldnotes-ai/interviewer/internal/memory"
)

const decisionSystemPrompt = `You are deciding whether a behavioral interview should ask a follow-up question on the current topic.
Consider the candidate's answer so far, how much interview time remains, and how many topics are still uncovered.
Favor a follow-up when the candidate's answer was shallow or vague and time allows; favor moving on when time is short or coverage is at risk.
Reply with exactly one word: true or false.`

const generateSystemPrompt = `You are an interviewer generating one natural follow-up question based on the candidate's prior answer in this topic.
Ask about a specific detail, decision, or outcome the candidate mentioned. Do not repeat the original question.
Reply with only the follow-up question text.`

// Adapter generates and gates follow-up questions, backed by an llm.Client
// and the session's working-memory store.
type Adapter struct {
	client llm.Client
	store  *memory.Store
}

// New builds a follow-up Adapter.
func New(client llm.Client, store *memory.Store) *Adapter {
	return &Adapter{client: client, store: store}
}

func (a *Adapter) recordExchange(sessionID, topic, question, answer string) {
	if !a.store.Has(sessionID, topic) {
		a.store.StartTopic(sessionID, topic, question, answer)
		return
	}
	a.store.AppendFollowup(sessionID, topic, question, answer)
}

// ShouldGenerate records the (question, answer) exchange in working memory,
// then asks the LLM whether a follow-up is warranted given the time and
// coverage context. On an ambiguous or erroring response, defaults to true
// so the interview keeps probing rather than moving on prematurely.
func (a *Adapter) ShouldGenerate(
	ctx context.Context,
	sessionID, topic, question, answer string,
	timeRemainingMin, timeSpentMin float64,
	followupsSoFar, topicsCovered int,
) bool {
	a.recordExchange(sessionID, topic, question, answer)

	entry, _ := a.store.History(sessionID, topic)
	history := renderHistory(entry)
	userPrompt := fmt.Sprintf(
		"Topic history so far:\n%s\n\nTime remaining: %.1f minutes. Time spent: %.1f minutes. Follow-ups so far on this topic: %d. Topics covered: %d.\nShould the interviewer ask a follow-up on this topic now?",
		history, timeRemainingMin, timeSpentMin, followupsSoFar, topicsCovered,
	)

	out, err := a.client.Complete(ctx, decisionSystemPrompt, userPrompt)
	if err != nil {
		return true
	}
	return parseDecision(out)
}

// Generate records the (question, answer) exchange in working memory, then
// produces a follow-up question string from the topic's full history.
func (a *Adapter) Generate(ctx context.Context, sessionID, topic, question, answer string) (string, error) {
	a.recordExchange(sessionID, topic, question, answer)

	entry, _ := a.store.History(sessionID, topic)
	history := renderHistory(entry)
	userPrompt := fmt.Sprintf("Topic history so far:\n%s\n\nGenerate the next follow-up question.", history)

	out, err := a.client.Complete(ctx, generateSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("followup: generate: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func parseDecision(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "false") {
		return false
	}
	if strings.Contains(lower, "true") {
		return true
	}
	return true
}

func renderHistory(e memory.TopicEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Q: %s\nA: %s\n", e.MainQuestion, e.MainReply)
	for _, f := range e.Followups {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", f.Question, f.Reply)
	}
	return b.String()
}
