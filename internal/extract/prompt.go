package extract

import (
	"fmt"
	"time"
)

const rulesPrompt = `You extract discrete facts from free text for a long-term memory store.

Rules you must follow:
- Preserve emotional, sensory, cognitive, comparative, capability, motivational, preferential, and attitudinal qualifiers. Never flatten "I was terrified of the dark alley" into "I walked down an alley".
- Resolve relative temporal expressions to absolute dates using the event date below as the anchor (e.g. "last night" is the day before the event date; "next month" is one month after).
- Resolve pronouns and implicit references to their concrete referents using the surrounding text.
- Emit exactly one logical fact per item. Do not merge unrelated assertions into one fact, and do not split a single assertion across multiple items.
- Classify each fact as "experience" (something the subject did or experienced), "world" (a fact about the external world), or "opinion" (a belief, preference, or evaluation).`

func buildPrompt(in Input, chunk Chunk, totalChunks int) string {
	header := fmt.Sprintf("Event date (anchor for relative dates): %s\n", in.EventDate.Format(time.RFC3339))
	if in.Context != "" {
		header += fmt.Sprintf("Context: %s\n", in.Context)
	}
	if totalChunks > 1 {
		header += fmt.Sprintf("This is chunk %d of %d of a longer input; extract facts from this chunk only.\n", chunk.Index+1, totalChunks)
	}
	return rulesPrompt + "\n\n" + header + "\nText:\n" + chunk.Content
}
