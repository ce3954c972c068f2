// Package consolidate implements the consolidation engine (§4.5):
// background synthesis of observations from raw facts, batched by
// exact tag-set, with a strict per-fact recall-authorization map
// guarding every write against cross-tag escalation.
package consolidate

import "encoding/json"

const responseSchema = `{
  "type": "object",
  "properties": {
    "creates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text", "source_fact_ids"],
        "properties": {
          "text": {"type": "string"},
          "source_fact_ids": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "updates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["observation_id", "text", "source_fact_ids"],
        "properties": {
          "observation_id": {"type": "string"},
          "text": {"type": "string"},
          "source_fact_ids": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "deletes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["observation_id"],
        "properties": {
          "observation_id": {"type": "string"}
        }
      }
    }
  }
}`

type createAction struct {
	Text          string   `json:"text"`
	SourceFactIDs []string `json:"source_fact_ids"`
}

type updateAction struct {
	ObservationID string   `json:"observation_id"`
	Text          string   `json:"text"`
	SourceFactIDs []string `json:"source_fact_ids"`
}

type deleteAction struct {
	ObservationID string `json:"observation_id"`
}

type batchResponse struct {
	Creates []createAction `json:"creates"`
	Updates []updateAction `json:"updates"`
	Deletes []deleteAction `json:"deletes"`
}

func parseBatchResponse(raw json.RawMessage) (batchResponse, error) {
	var resp batchResponse
	err := json.Unmarshal(raw, &resp)
	return resp, err
}
