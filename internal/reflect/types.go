// Package reflect implements contextual synthesis (§4.7): a read-side
// collaborator that runs a recall, gathers the standing mental models
// and directives it drew on, and asks an LLM to answer in prose (or,
// optionally, against a caller-supplied JSON schema).
package reflect

import "github.com/hindsight-run/hindsight/internal/recall"

// Query is a reflection request; Recall is embedded verbatim since
// reflection's first step is simply a recall call.
type Query struct {
	recall.Query
	Schema []byte // optional: enforce structured output against this JSON schema
}

// BasedOn always carries all three fields, even when every slice is
// empty — the wire contract explicitly forbids an empty list or null
// in place of this object (§4.7).
type BasedOn struct {
	Memories     []string `json:"memories"`
	MentalModels []string `json:"mental_models"`
	Directives   []string `json:"directives"`
}

// Response is the result of a reflection call.
type Response struct {
	Text    string  `json:"text"`
	BasedOn BasedOn `json:"based_on"`
}

func newBasedOn() BasedOn {
	return BasedOn{Memories: []string{}, MentalModels: []string{}, Directives: []string{}}
}
