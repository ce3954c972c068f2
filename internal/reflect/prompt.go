package reflect

import (
	"encoding/json"
	"fmt"

	"github.com/hindsight-run/hindsight/internal/llm"
	"github.com/hindsight-run/hindsight/internal/recall"
	"github.com/hindsight-run/hindsight/internal/storage"
)

func buildMessages(query string, recalled *recall.Response, models []storage.MentalModel, directives []storage.Directive) []llm.Message {
	var b []byte
	b = append(b, "Recalled memories:\n"...)
	if len(recalled.Results) == 0 {
		b = append(b, "(none)\n"...)
	}
	for _, r := range recalled.Results {
		b = append(b, fmt.Sprintf("- [%s] %s\n", r.Unit.FactType, r.Unit.Text)...)
	}

	if len(models) > 0 {
		b = append(b, "\nStanding mental models:\n"...)
		for _, m := range models {
			b = append(b, fmt.Sprintf("- %s: %s\n", m.Name, m.Content)...)
		}
	}

	if len(directives) > 0 {
		b = append(b, "\nActive directives:\n"...)
		for _, d := range directives {
			b = append(b, fmt.Sprintf("- %s (priority %d): %s\n", d.Name, d.Priority, d.Content)...)
		}
	}

	b = append(b, fmt.Sprintf("\nQuestion: %s\n", query)...)

	return []llm.Message{
		{Role: "system", Content: "Answer the question using only the recalled memories, mental models, and directives above. If nothing relevant was recalled, say so plainly rather than inventing an answer."},
		{Role: "user", Content: string(b)},
	}
}

func extractText(raw json.RawMessage) (string, error) {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	return parsed.Text, nil
}
