package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/leadflow/leadflow/core"
)

var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// rawResult mirrors the provider JSON loosely; every field is optional so a
// partially malformed response degrades to an absent field, never a failure.
type rawResult struct {
	IsLead            *bool              `json:"is_lead"`
	ConfidenceScore   *float64           `json:"confidence_score"`
	Interests         []string           `json:"interests"`
	BuyingSignals     []string           `json:"buying_signals"`
	UrgencyLevel      string             `json:"urgency_level"`
	RecommendedAction string             `json:"recommended_action"`
	PainPoints        []string           `json:"pain_points"`
	EstimatedBudget   string             `json:"estimated_budget"`
	Timeline          string             `json:"timeline"`
	DecisionStage     string             `json:"decision_stage"`
	Roles             map[string]rawRole `json:"roles"`
}

type rawRole struct {
	Role       string   `json:"role"`
	Confidence *float64 `json:"confidence"`
}

// ParseResult extracts the JSON object from a provider's free-text response
// and converts it into a Result. Missing or malformed structured fields are
// treated as absent; only a response with no parseable JSON at all is an
// error.
func ParseResult(text string) (*Result, error) {
	block := jsonBlockRe.FindString(text)
	if block == "" {
		return nil, fmt.Errorf("no JSON object in analyzer response")
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("decode analyzer response: %w", err)
	}

	res := &Result{}
	if raw.ConfidenceScore != nil {
		res.Confidence = core.ClampScore(int(*raw.ConfidenceScore))
	}
	if raw.IsLead != nil {
		res.IsLead = *raw.IsLead
	} else {
		res.IsLead = res.Confidence > 0
	}
	res.Interests = raw.Interests
	res.BuyingSignals = raw.BuyingSignals
	res.PainPoints = raw.PainPoints
	res.UrgencyLevel = strings.TrimSpace(raw.UrgencyLevel)
	res.RecommendedAction = strings.TrimSpace(raw.RecommendedAction)
	res.DecisionStage = strings.TrimSpace(raw.DecisionStage)
	res.EstimatedBudget = strings.TrimSpace(raw.EstimatedBudget)
	res.Timeline = strings.TrimSpace(raw.Timeline)

	if len(raw.Roles) > 0 {
		res.Roles = make(map[string]core.RoleAssignment, len(raw.Roles))
		for id, rr := range raw.Roles {
			role := core.ParseRole(rr.Role)
			if role == core.RoleUnknown {
				continue
			}
			conf := 0.5
			if rr.Confidence != nil {
				conf = clamp01(*rr.Confidence)
			}
			res.Roles[id] = core.RoleAssignment{Role: role, Confidence: conf}
		}
		if len(res.Roles) == 0 {
			res.Roles = nil
		}
	}
	return res, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
