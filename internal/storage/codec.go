package storage

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// packEmbedding encodes a float32 vector as a little-endian byte blob,
// the compact binary format the teacher's ai.Manager approximated with
// a JSON array (float64SliceToBytes); packed binary keeps the dense
// index's exact-scan cosine pass cheap at recall time.
func packEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func unmarshalTags(s string) []string {
	if s == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return []string{}
	}
	return tags
}

func marshalJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalMap(s string) map[string]any {
	m := map[string]any{}
	if s == "" {
		return m
	}
	_ = json.Unmarshal([]byte(s), &m)
	return m
}

func marshalIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func unmarshalIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return []string{}
	}
	return ids
}

func marshalHistory(h []HistoryEntry) string {
	if h == nil {
		h = []HistoryEntry{}
	}
	b, _ := json.Marshal(h)
	return string(b)
}

func unmarshalHistory(s string) []HistoryEntry {
	if s == "" {
		return []HistoryEntry{}
	}
	var h []HistoryEntry
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return []HistoryEntry{}
	}
	return h
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
