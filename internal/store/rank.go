package store

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// Candidate is a stored chunk considered by a relevance query.
type Candidate struct {
	Seq       int64
	Text      string
	Embedding []float32
}

type scored struct {
	seq   int64
	text  string
	tier  int
	score float64
}

// Rank orders candidates by descending similarity to the query and returns at
// most limit texts. When the query has an embedding, candidates with a vector
// are ranked by cosine similarity and come before every candidate without
// one; that tail is ordered by LexicalScore, matching NULLS LAST in the
// PostgreSQL store. Without a query embedding everything is scored lexically.
// Equal scores keep insertion order (ascending Seq).
func Rank(query string, queryEmbedding []float32, candidates []Candidate, limit int) []string {
	limit = NormalizeLimit(limit)
	queryTokens := tokenize(query)

	results := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		r := scored{seq: c.Seq, text: c.Text}
		switch {
		case len(queryEmbedding) == 0:
			r.score = lexicalScore(queryTokens, c.Text)
		case len(c.Embedding) == len(queryEmbedding):
			r.score = Cosine(queryEmbedding, c.Embedding)
		default:
			r.tier = 1
			r.score = lexicalScore(queryTokens, c.Text)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].tier != results[j].tier {
			return results[i].tier < results[j].tier
		}
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].seq < results[j].seq
	})

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.text
	}
	return out
}

// Cosine returns the cosine similarity of two equal-length vectors, 0 for zero vectors.
func Cosine(a, b []float32) float64 {
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

// LexicalScore scores text against query between 0 and 1. Each query token
// contributes its best match among the text tokens: 1 for an exact token,
// otherwise the normalised Levenshtein similarity. The result is the average.
func LexicalScore(query, text string) float64 {
	return lexicalScore(tokenize(query), text)
}

func lexicalScore(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	textTokens := make(map[string]struct{})
	for _, t := range tokenize(text) {
		textTokens[t] = struct{}{}
	}
	if len(textTokens) == 0 {
		return 0
	}

	total := 0.0
	for _, q := range queryTokens {
		if _, ok := textTokens[q]; ok {
			total += 1.0
			continue
		}
		best := 0.0
		for t := range textTokens {
			if s := tokenSimilarity(q, t); s > best {
				best = s
			}
		}
		total += best
	}
	return total / float64(len(queryTokens))
}

// tokenSimilarity is 1 - distance/maxLen. Tokens whose lengths differ by more
// than half the longer one cannot score above 0.5 and are skipped.
func tokenSimilarity(a, b string) float64 {
	la, lb := len(a), len(b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff*2 > maxLen {
		return 0
	}
	dist := levenshtein.Distance(a, b, nil)
	score := 1.0 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
