package engine

import "strings"

// Intent is the recognized purpose of a conversation turn.
type Intent string

const (
	IntentRenew         Intent = "renew"
	IntentUpdateProfile Intent = "update_profile"
	IntentFeedback      Intent = "feedback"
	IntentGreeting      Intent = "greeting"
	IntentHelp          Intent = "help"
	IntentCancel        Intent = "cancel"
	IntentUnknown       Intent = "unknown"
)

// intentKeywords maps trigger words to intents. Matching is whole-word;
// when several words match, the longest keyword wins, mirroring the
// precedence of more specific phrasing.
var intentKeywords = map[string]Intent{
	"renew":        IntentRenew,
	"renewal":      IntentRenew,
	"pay":          IntentRenew,
	"payment":      IntentRenew,
	"dues":         IntentRenew,
	"subscription": IntentRenew,

	"update":  IntentUpdateProfile,
	"change":  IntentUpdateProfile,
	"correct": IntentUpdateProfile,
	"edit":    IntentUpdateProfile,
	"fix":     IntentUpdateProfile,

	"feedback":   IntentFeedback,
	"rate":       IntentFeedback,
	"rating":     IntentFeedback,
	"review":     IntentFeedback,
	"experience": IntentFeedback,

	"hello": IntentGreeting,
	"hi":    IntentGreeting,
	"hey":   IntentGreeting,

	"help":    IntentHelp,
	"options": IntentHelp,

	"cancel":    IntentCancel,
	"nevermind": IntentCancel,
	"stop":      IntentCancel,
}

// detectIntent scores the normalized text against the keyword table.
// Returns IntentUnknown when nothing matches.
func detectIntent(text string) (Intent, []string) {
	best := IntentUnknown
	var matched []string
	highestScore := 0

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?'\"")
		intent, ok := intentKeywords[word]
		if !ok {
			continue
		}
		score := len(word)
		if score > highestScore {
			highestScore = score
			best = intent
			matched = []string{word}
		} else if score == highestScore {
			matched = append(matched, word)
		}
	}

	return best, matched
}
