package session

import (
	"sort"
	"strings"

	"github.com/gosuda/parley/internal/domain"
)

// ConversationContext is the derived view handed to the agent layer
// before each query: a window of recent turns plus what we can cheaply
// infer from them. It is recomputed per request and never persisted.
type ConversationContext struct {
	Turns     []*domain.Turn
	Summary   string
	Topics    []string
	FollowUps []string
}

// summaryContentLimit caps how much of each turn the digest quotes.
const summaryContentLimit = 200

// maxFollowUps caps the suggestion list handed back to the UI.
const maxFollowUps = 3

// Topic categories matched against turn content. Keys are the category
// names surfaced to callers.
var topicKeywords = map[string][]string{
	"account":  {"account", "profile", "customer"},
	"warranty": {"warranty", "serial", "claim", "product"},
	"weather":  {"weather", "mars", "temperature", "forecast"},
}

// Candidate follow-up questions per category.
var followUpCatalog = map[string][]string{
	"account": {
		"Would you like to update any of your profile information?",
		"Do you need help with your communication preferences?",
	},
	"warranty": {
		"Would you like me to explain the warranty coverage details?",
		"Do you need help with a warranty claim process?",
		"Would you like me to check the warranty status of any other products?",
	},
	"weather": {
		"Would you like to know about Mars atmospheric conditions?",
		"Are you interested in historical Mars weather data?",
	},
}

// Summarize renders a deterministic digest of the window: one line per
// turn, speaker label plus content truncated at summaryContentLimit
// runes. The format is fixed so tests can assert exact output.
func Summarize(turns []*domain.Turn) string {
	if len(turns) == 0 {
		return ""
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		label := "Customer"
		if turn.Role == domain.RoleAssistant {
			label = "Agent"
		}
		lines = append(lines, label+": "+truncateRunes(turn.Content, summaryContentLimit))
	}

	return strings.Join(lines, "\n")
}

// InferTopics scans turn content for the fixed keyword categories and
// returns the matched category names, sorted and deduplicated. A turn
// may match zero, one, or several categories.
func InferTopics(turns []*domain.Turn) []string {
	matched := map[string]bool{}
	for _, turn := range turns {
		for _, topic := range turnTopics(turn) {
			matched[topic] = true
		}
	}

	topics := make([]string, 0, len(matched))
	for topic := range matched {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	return topics
}

// SuggestFollowUps maps matched categories to catalog questions,
// deduplicated and capped at maxFollowUps. Categories matched in the
// last turn rank first so suggestions track the live thread of the
// conversation rather than its history.
func SuggestFollowUps(topics []string, lastTurn *domain.Turn) []string {
	recent := map[string]bool{}
	if lastTurn != nil {
		for _, topic := range turnTopics(lastTurn) {
			recent[topic] = true
		}
	}

	ordered := make([]string, 0, len(topics))
	for _, topic := range topics {
		if recent[topic] {
			ordered = append(ordered, topic)
		}
	}
	for _, topic := range topics {
		if !recent[topic] {
			ordered = append(ordered, topic)
		}
	}

	seen := map[string]bool{}
	var suggestions []string
	for _, topic := range ordered {
		for _, q := range followUpCatalog[topic] {
			if seen[q] {
				continue
			}
			seen[q] = true
			suggestions = append(suggestions, q)
			if len(suggestions) == maxFollowUps {
				return suggestions
			}
		}
	}

	return suggestions
}

func turnTopics(turn *domain.Turn) []string {
	content := strings.ToLower(turn.Content)

	var topics []string
	for topic, keywords := range topicKeywords {
		for _, kw := range keywords {
			if strings.Contains(content, kw) {
				topics = append(topics, topic)
				break
			}
		}
	}
	sort.Strings(topics)

	return topics
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
