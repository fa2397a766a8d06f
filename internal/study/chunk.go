package study

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// ChunkWords splits text into windows of size words overlapping by overlap words
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size <= 0 {
		size = 220
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// RankedChunk is a chunk with its relevance to a question
type RankedChunk struct {
	Index int
	Text  string
	Score float64
}

// RankChunks orders chunks by term-frequency cosine similarity to question and
// returns the best k with a positive score, ties kept in document order
func RankChunks(question string, chunks []string, k int) []RankedChunk {
	queryTerms := terms(question)
	if len(queryTerms) == 0 || len(chunks) == 0 || k <= 0 {
		return nil
	}

	vocab := make(map[string]int)
	for _, t := range queryTerms {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}
	query := vector(queryTerms, vocab)

	ranked := make([]RankedChunk, 0, len(chunks))
	for i, chunk := range chunks {
		score := cosine(query, vector(terms(chunk), vocab))
		if score > 0 {
			ranked = append(ranked, RankedChunk{Index: i, Text: chunk, Score: score})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// vector counts terms over the query vocabulary; other terms are ignored
func vector(ts []string, vocab map[string]int) []float64 {
	v := make([]float64, len(vocab))
	for _, t := range ts {
		if i, ok := vocab[t]; ok {
			v[i]++
		}
	}
	return v
}

func cosine(a, b []float64) float64 {
	magA := math.Sqrt(floats.Dot(a, a))
	magB := math.Sqrt(floats.Dot(b, b))
	if magA == 0 || magB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (magA * magB)
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "by": true,
	"did": true, "do": true, "does": true, "for": true, "from": true, "how": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "what": true, "when": true, "where": true, "which": true, "who": true, "why": true, "with": true,
}

// terms lower-cases text and splits it into non-stop-word tokens
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 && !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}
