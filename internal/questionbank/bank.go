// Package questionbank loads the topic -> seed questions document and
// hands out topics to a session without repetition.
package questionbank

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// fallbackBank is used when the configured YAML artifact fails to load, so
// a broken artifact doesn't take the whole process down.
var fallbackBank = Bank{
	"leadership": {
		"Tell me about a time you led a team through a difficult change.",
		"Describe a situation where you had to motivate a struggling teammate.",
	},
	"conflict": {
		"Tell me about a disagreement you had with a coworker and how you resolved it.",
		"Describe a time you had to deliver difficult feedback.",
	},
}

// Bank maps a topic name to its ordered list of seed questions.
type Bank map[string][]string

// Load parses the YAML document at path into a Bank. Falls back to a small
// built-in two-topic bank, reporting false, if the file is missing,
// unreadable, malformed, empty, or has a topic with no questions. Load
// itself does not log; the caller decides how to report the fallback.
func Load(path string) (Bank, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fallbackBank, false
	}

	var bank Bank
	if err := yaml.Unmarshal(raw, &bank); err != nil {
		return fallbackBank, false
	}
	if len(bank) == 0 {
		return fallbackBank, false
	}
	for topic, questions := range bank {
		if len(questions) == 0 {
			return fallbackBank, false
		}
		_ = topic
	}
	return bank, true
}

// Selector draws topics from a Bank without repetition, for the lifetime of
// one session.
type Selector struct {
	bank      Bank
	remaining []string
}

// NewSelector builds a Selector instance scoped to one session, with every
// topic in bank available to draw.
func (b Bank) NewSelector() *Selector {
	topics := make([]string, 0, len(b))
	for t := range b {
		topics = append(topics, t)
	}
	sort.Strings(topics) // deterministic base ordering before shuffling draws
	return &Selector{bank: b, remaining: topics}
}

// PickNewTopic draws a uniformly random topic from those not yet returned
// by this Selector. Returns ok == false once every topic has been drawn.
func (s *Selector) PickNewTopic() (topic string, ok bool) {
	if len(s.remaining) == 0 {
		return "", false
	}
	i := rand.IntN(len(s.remaining))
	topic = s.remaining[i]
	s.remaining = append(s.remaining[:i], s.remaining[i+1:]...)
	return topic, true
}

// PickQuestion draws a uniformly random seed question for topic.
func (b Bank) PickQuestion(topic string) (string, error) {
	questions, ok := b[topic]
	if !ok || len(questions) == 0 {
		return "", fmt.Errorf("questionbank: no seed questions for topic %q", topic)
	}
	return questions[rand.IntN(len(questions))], nil
}
