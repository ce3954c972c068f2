package extract

import (
	"strings"
	"unicode"
)

// ChunkConfig configures how oversized input is split before each
// chunk is sent to the LLM, adapted from the teacher's
// internal/memory/chunker.go (paragraph-then-sentence splitting with a
// trailing overlap) and generalized from "memory chunking" to
// "extraction input chunking" per §4.2's chunked-extraction rule.
type ChunkConfig struct {
	MaxChunkSize int
	OverlapSize  int
	MinChunkSize int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{MaxChunkSize: 4000, OverlapSize: 200, MinChunkSize: 6000}
}

// Chunk is one piece of oversized input content, annotated with its
// index so the LLM prompt can reference "chunk 2 of 5" for continuity.
type Chunk struct {
	Content string
	Index   int
}

// ShouldChunk reports whether content exceeds the configured minimum.
func (c ChunkConfig) ShouldChunk(content string) bool {
	return len(content) > c.MinChunkSize
}

// Split divides content into chunks with overlap. Returns a single
// chunk (index 0) if content doesn't need splitting.
func (c ChunkConfig) Split(content string) []Chunk {
	if !c.ShouldChunk(content) {
		return []Chunk{{Content: content, Index: 0}}
	}

	paragraphs := splitIntoParagraphs(content)
	var pieces []string
	if len(paragraphs) > 1 {
		pieces = groupBySize(paragraphs, "\n\n", c.MaxChunkSize, c.OverlapSize)
	} else {
		pieces = groupBySize(splitIntoSentences(content), " ", c.MaxChunkSize, c.OverlapSize)
	}

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{Content: p, Index: i}
	}
	return chunks
}

func groupBySize(units []string, sep string, maxSize, overlap int) []string {
	var out []string
	var current strings.Builder

	for i, u := range units {
		withSep := u
		if i < len(units)-1 {
			withSep = u + sep
		}
		if current.Len() > 0 && current.Len()+len(withSep) > maxSize {
			out = append(out, strings.TrimSpace(current.String()))
			overlapContent := suffixOf(current.String(), overlap)
			current.Reset()
			current.WriteString(overlapContent)
		}
		current.WriteString(withSep)
	}
	if current.Len() > 0 {
		out = append(out, strings.TrimSpace(current.String()))
	}
	return out
}

func splitIntoParagraphs(content string) []string {
	var out []string
	for _, p := range strings.Split(content, "\n\n") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func splitIntoSentences(content string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(content)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			followedBySpace := i+1 < len(runes) && unicode.IsSpace(runes[i+1])
			if atEnd || followedBySpace {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func suffixOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
