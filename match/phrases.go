package match

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Built-in phrase lists. All lowercase; matching is case-insensitive
// substring. Override any list via a phrases YAML file (LoadPhrases).

var defaultDecisionMakerPhrases = []string{
	"i decide", "my decision", "my call", "i approve", "i'm the ceo",
	"i'm the founder", "i run the company", "i sign off", "final say",
	"i'll make the decision", "as the owner",
}

var defaultBudgetHolderPhrases = []string{
	"our budget", "my budget", "i control the budget", "budget is approved",
	"we can spend", "allocated budget", "i handle procurement",
	"cost center", "i pay for", "funding is available",
}

var defaultInfluencerPhrases = []string{
	"i'll recommend", "i will suggest", "i'll pass this along",
	"i'll bring it to the team", "my boss", "our director", "i advise",
	"i'll share this with", "let me check with",
}

var defaultObserverPhrases = []string{
	"just watching", "just lurking", "out of curiosity", "just curious",
	"not involved", "just reading", "following this thread",
}

var defaultHighIntentPhrases = []string{
	"ready to buy", "ready to order", "want to order", "send me a quote",
	"send an invoice", "where do i sign", "need this asap", "need it urgently",
	"looking for a vendor", "looking for a contractor", "who can build",
	"ready to pay", "want to purchase",
}

var defaultMediumIntentPhrases = []string{
	"comparing options", "considering", "evaluating", "looking into",
	"interested in pricing", "thinking about buying", "exploring solutions",
	"in the market for", "requesting a demo", "anyone recommend",
}

var defaultBudgetPhrases = []string{
	"budget", "price range", "how much does", "what does it cost",
	"pricing", "cost estimate", "quote", "willing to pay",
}

var defaultIrrelevantPhrases = []string{
	"for sale", "selling my", "job opening", "vacancy", "hiring",
	"my resume", "real estate", "dating", "spam", "giveaway",
}

var defaultQuestionMarkers = []string{
	"?", "how ", "what ", "where ", "who can", "who does", "any advice",
	"recommend",
}

// LoadPhrases reads a phrase-list override file (YAML). Missing keys keep
// the built-in defaults.
func LoadPhrases(path string) (Phrases, error) {
	var p Phrases
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("invalid phrases yaml: %w", err)
	}
	return p, nil
}
