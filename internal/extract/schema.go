package extract

import "encoding/json"

// responseSchema is the schema-constrained JSON shape the extractor
// asks the LLM to emit: one object per logical fact.
const responseSchema = `{
  "type": "object",
  "required": ["facts"],
  "properties": {
    "facts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "fact_type"],
        "properties": {
          "text": {"type": "string"},
          "fact_type": {"type": "string", "enum": ["experience", "world", "opinion"]},
          "occurred_start": {"type": "string"},
          "occurred_end": {"type": "string"},
          "mentioned_at": {"type": "string"}
        }
      }
    }
  }
}`

type factResponse struct {
	Text          string `json:"text"`
	FactType      string `json:"fact_type"`
	OccurredStart string `json:"occurred_start,omitempty"`
	OccurredEnd   string `json:"occurred_end,omitempty"`
	MentionedAt   string `json:"mentioned_at,omitempty"`
}

type extractResponse struct {
	Facts []factResponse `json:"facts"`
}

func parseResponse(raw json.RawMessage) (extractResponse, error) {
	var resp extractResponse
	err := json.Unmarshal(raw, &resp)
	return resp, err
}
