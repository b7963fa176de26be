package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const intentInstructions = `You are a travel-planning assistant. Read the conversation below and decide whether the
traveller has given enough information to plan a trip: a destination, when they travel
(exact dates or at least a month) and a budget in US dollars. The length of stay is optional.

Respond in EXACTLY ONE of these two ways and never mix them:

1. If everything is known, output ONLY a raw JSON object, with no prose and no Markdown:
{
  "origin": "departure city or 3-letter airport/city code, or null if unknown",
  "destination": "destination city",
  "country": "destination country, or null",
  "start_date": "YYYY-MM-DD",
  "end_date": "YYYY-MM-DD",
  "duration_days": 5,
  "budget_usd": 1500,
  "preferences": ["museums", "food"],
  "travel_month": "March"
}
   When the traveller only gives a month, use day 10 of that month as start_date.
   Use null for any field the traveller has not given.
   Never invent a budget the traveller did not state.

2. Otherwise, reply with one or two friendly sentences of plain prose asking only for what is
   missing. Do not output any JSON in this case.

Today's date is %s.

Conversation:
%s`

// buildIntentPrompt renders the extraction prompt for the given window of turns.
func buildIntentPrompt(turns []types.ConversationTurn, today time.Time) string {
	var b strings.Builder
	for _, t := range turns {
		speaker := "User"
		if t.Role == types.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, strings.TrimSpace(t.Content))
	}
	return fmt.Sprintf(intentInstructions, today.Format(time.DateOnly), b.String())
}

// windowTurns keeps user and assistant turns with content, then the last limit of them.
func windowTurns(turns []types.ConversationTurn, limit int) []types.ConversationTurn {
	kept := make([]types.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != types.RoleUser && t.Role != types.RoleAssistant {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		kept = append(kept, t)
	}
	if limit > 0 && len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
