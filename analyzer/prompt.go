package analyzer

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the analysis request into the provider-agnostic prompt.
// Both adapters share it so swapping providers never changes semantics.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are an expert at qualifying potential B2B customers from chat conversations.\n\n")

	switch req.Kind {
	case DialogueRequest:
		b.WriteString("CONVERSATION CONTEXT:\n")
		fmt.Fprintf(&b, "- Channel: %s\n", req.ChannelID)
		fmt.Fprintf(&b, "- Participants: %d\n", len(req.Participants))
		for _, p := range req.Participants {
			name := p.Display
			if name == "" {
				name = p.ID
			}
			fmt.Fprintf(&b, "  - %s (id=%s, messages=%d, current_role=%s)\n", name, p.ID, p.MessageCount, p.Role)
		}
	default:
		b.WriteString("SENDER CONTEXT:\n")
		fmt.Fprintf(&b, "- Channel: %s\n", req.ChannelID)
		fmt.Fprintf(&b, "- Sender: %s\n", req.SubjectID)
		fmt.Fprintf(&b, "- Messages in window: %d\n", len(req.Messages))
	}

	b.WriteString("\nMESSAGES (oldest first):\n")
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Timestamp.UTC().Format("2006-01-02 15:04"), m.SenderID, m.Text)
	}

	b.WriteString(`
TASK:
Judge whether this activity indicates a commercially meaningful lead.
Analyze the WHOLE context, not single messages; look for implied needs,
business framing and buying readiness. Be objective: high confidence only
with explicit signals.

Return STRICTLY a single JSON object:
{
  "is_lead": boolean,
  "confidence_score": number (0-100),
  "interests": [string],
  "buying_signals": [string],
  "urgency_level": "immediate|short_term|long_term|none",
  "recommended_action": string,
  "pain_points": [string],
  "estimated_budget": string or null,
  "timeline": string or null,
  "decision_stage": "awareness|consideration|decision|post_purchase"`)

	if req.Kind == DialogueRequest {
		b.WriteString(`,
  "roles": { "<participant_id>": { "role": "decision_maker|budget_holder|influencer|observer", "confidence": number (0-1) } }`)
	}
	b.WriteString("\n}\n")
	return b.String()
}
