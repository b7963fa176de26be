package enrich

import (
	"encoding/json"
	"fmt"
)

const enrichInstructions = `You are a concise travel writer. For each attraction in %s listed below, write ONE short,
vivid sentence describing why a visitor would go there.

Return ONLY a raw JSON object, with no Markdown, whose keys are the attraction names copied
EXACTLY as given and whose values are the sentences. Example:
{"Victoria Peak": "The city's highest point, with sweeping views over the harbour."}

Attractions:
%s`

func buildEnrichPrompt(destination string, names []string) string {
	list, _ := json.Marshal(names)
	return fmt.Sprintf(enrichInstructions, destination, list)
}
