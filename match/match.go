// Package match implements the pattern matcher: pure, case-insensitive
// phrase matching over message text for participant roles and buying-signal
// categories, plus the keyword-only fallback score used when the AI analysis
// service is unavailable. A Matcher is read-only after construction and safe
// for concurrent use from any number of sessions.
package match

import (
	"strings"
	"unicode"

	"github.com/leadflow/leadflow/core"
)

// Signal is a buying-signal category tier.
type Signal int

const (
	// SignalHighIntent marks explicit readiness to buy.
	SignalHighIntent Signal = iota
	// SignalMediumIntent marks active evaluation or comparison.
	SignalMediumIntent
	// SignalBudget marks budget or pricing discussion.
	SignalBudget
)

// String returns the configuration name of the signal tier.
func (s Signal) String() string {
	switch s {
	case SignalHighIntent:
		return "high"
	case SignalMediumIntent:
		return "medium"
	case SignalBudget:
		return "budget_discussion"
	default:
		return "unknown"
	}
}

// Phrases holds the configurable phrase lists. Empty lists fall back to the
// built-in defaults at construction time.
type Phrases struct {
	Roles      map[string][]string `yaml:"roles"`
	Signals    map[string][]string `yaml:"signals"`
	Irrelevant []string            `yaml:"irrelevant"`
	Questions  []string            `yaml:"questions"`
}

// Options configure a Matcher.
type Options struct {
	Phrases Phrases
}

// Matcher performs phrase matching. No side effects, no external calls.
type Matcher struct {
	roles      map[core.Role][]string
	signals    map[Signal][]string
	irrelevant []string
	questions  []string
}

// New constructs a Matcher, merging provided phrase lists over the defaults.
func New(optFns ...func(o *Options)) *Matcher {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Matcher{
		roles: map[core.Role][]string{
			core.RoleDecisionMaker: defaultDecisionMakerPhrases,
			core.RoleBudgetHolder:  defaultBudgetHolderPhrases,
			core.RoleInfluencer:    defaultInfluencerPhrases,
			core.RoleObserver:      defaultObserverPhrases,
		},
		signals: map[Signal][]string{
			SignalHighIntent:   defaultHighIntentPhrases,
			SignalMediumIntent: defaultMediumIntentPhrases,
			SignalBudget:       defaultBudgetPhrases,
		},
		irrelevant: defaultIrrelevantPhrases,
		questions:  defaultQuestionMarkers,
	}

	for name, list := range opts.Phrases.Roles {
		if r := core.ParseRole(name); r != core.RoleUnknown && len(list) > 0 {
			m.roles[r] = lowerAll(list)
		}
	}
	for name, list := range opts.Phrases.Signals {
		if len(list) == 0 {
			continue
		}
		switch name {
		case "high":
			m.signals[SignalHighIntent] = lowerAll(list)
		case "medium":
			m.signals[SignalMediumIntent] = lowerAll(list)
		case "budget_discussion":
			m.signals[SignalBudget] = lowerAll(list)
		}
	}
	if len(opts.Phrases.Irrelevant) > 0 {
		m.irrelevant = lowerAll(opts.Phrases.Irrelevant)
	}
	if len(opts.Phrases.Questions) > 0 {
		m.questions = lowerAll(opts.Phrases.Questions)
	}
	return m
}

// MatchRoles returns the number of matched phrases per role for the text.
// Roles with zero matches are omitted.
func (m *Matcher) MatchRoles(text string) map[core.Role]int {
	lower := strings.ToLower(text)
	out := map[core.Role]int{}
	for role, phrases := range m.roles {
		if n := countHits(lower, phrases); n > 0 {
			out[role] = n
		}
	}
	return out
}

// MatchSignals returns the number of matched phrases per signal category.
// Categories with zero matches are omitted.
func (m *Matcher) MatchSignals(text string) map[Signal]int {
	lower := strings.ToLower(text)
	out := map[Signal]int{}
	for sig, phrases := range m.signals {
		if n := countHits(lower, phrases); n > 0 {
			out[sig] = n
		}
	}
	return out
}

// FallbackScore produces a 0-100 keyword-only interest score. It backs the
// degraded scoring path when the AI service times out or errors: category
// hits add weighted points, questions and substantive length add bonuses,
// irrelevant topics and junk messages are penalized.
func (m *Matcher) FallbackScore(text string) int {
	if text == "" {
		return 0
	}
	lower := strings.ToLower(text)
	score := 0

	if countHits(lower, m.signals[SignalHighIntent]) > 0 {
		score += 45
	}
	if countHits(lower, m.signals[SignalMediumIntent]) > 0 {
		score += 35
	}
	if countHits(lower, m.signals[SignalBudget]) > 0 {
		score += 30
	}
	if countHits(lower, m.questions) > 0 {
		score += 15
	}
	if len(text) > 50 {
		score += 10
	}
	if len(text) > 150 {
		score += 5
	}
	if countHits(lower, m.irrelevant) > 0 {
		score -= 30
	}
	if len(text) < 20 {
		score -= 15
	}
	if wordRunes(text) < 10 {
		score -= 20
	}
	return core.ClampScore(score)
}

func countHits(lower string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

// wordRunes counts letter/digit runes, used to spot emoji-only messages.
func wordRunes(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

func lowerAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = strings.ToLower(s)
	}
	return out
}
