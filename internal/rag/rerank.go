package rag

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"physiology-rag/internal/indexer"
	"physiology-rag/internal/vectorstore"
)

// The lexical boost added to a vector score is capped at maxBoost.
const (
	termDensityScale = float32(10.0)
	maxBoost         = float32(0.4)
	titleTermBonus   = float32(0.1)
	phraseBonus      = float32(0.05)
	pageRefBonus     = float32(0.1)
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"can": {}, "describe": {}, "does": {}, "do": {}, "explain": {}, "for": {}, "from": {},
	"has": {}, "have": {}, "how": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"page": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {}, "when": {}, "which": {},
	"why": {}, "with": {},
}

var pageRef = regexp.MustCompile(`(?i)\bpages?\s+(\d+)\b`)

// queryTerms is a question prepared for lexical scoring.
type queryTerms struct {
	terms []string
	// pairs are adjacent content terms, matched as phrases.
	pairs []string
	page  int
}

func parseQuery(question string) queryTerms {
	q := queryTerms{page: -1}
	if m := pageRef.FindStringSubmatch(question); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			q.page = n
		}
	}
	for _, tok := range tokenize(question) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil && q.page >= 0 {
			continue
		}
		q.terms = append(q.terms, tok)
	}
	for i := 1; i < len(q.terms); i++ {
		q.pairs = append(q.pairs, q.terms[i-1]+" "+q.terms[i])
	}
	return q
}

// score rates one retrieved chunk against the question: term density in the
// chunk text, terms in a real section title, adjacent term pairs and a page
// the question names explicitly.
func (q queryTerms) score(meta map[string]any) float32 {
	if len(q.terms) == 0 && q.page < 0 {
		return 0
	}

	var boost float32
	textTokens := tokenize(vectorstore.MetaString(meta, vectorstore.MetaText))
	if len(textTokens) > 0 && len(q.terms) > 0 {
		freq := make(map[string]int, len(textTokens))
		for _, tok := range textTokens {
			freq[tok]++
		}
		matches := 0
		for _, term := range q.terms {
			matches += freq[term]
		}
		boost += float32(matches) / float32(1+len(textTokens)) * termDensityScale

		joined := " " + strings.Join(textTokens, " ") + " "
		for _, pair := range q.pairs {
			if strings.Contains(joined, " "+pair+" ") {
				boost += phraseBonus
			}
		}
	}

	// Fallback chunks carry generated titles that say nothing about content.
	switch vectorstore.MetaString(meta, vectorstore.MetaContentType) {
	case indexer.ContentFallbackParagraph, indexer.ContentFallbackSentence:
	default:
		title := tokenize(vectorstore.MetaString(meta, vectorstore.MetaTitle))
		for _, term := range q.terms {
			if slices.Contains(title, term) {
				boost += titleTermBonus
			}
		}
	}

	if q.page >= 0 && pageCovers(vectorstore.MetaString(meta, vectorstore.MetaPageID), q.page) {
		boost += pageRefBonus
	}
	return min(boost, maxBoost)
}

// pageCovers reports whether a page id such as "4" or "3-5" includes page.
func pageCovers(pageID string, page int) bool {
	first, last, ranged := strings.Cut(pageID, "-")
	start, err := strconv.Atoi(first)
	if err != nil {
		return false
	}
	end := start
	if ranged {
		if end, err = strconv.Atoi(last); err != nil {
			return false
		}
	}
	return start <= page && page <= end
}

// rerank adds a lexical boost to each candidate's vector score and orders
// them by the sum. Ties keep retrieval order.
func rerank(question string, candidates []rerankCandidate) []rerankCandidate {
	q := parseQuery(question)
	for i := range candidates {
		c := &candidates[i]
		c.lexicalScore = q.score(c.result.Meta)
		c.finalScore = c.vectorScore + c.lexicalScore
	}
	slices.SortStableFunc(candidates, func(a, b rerankCandidate) int {
		switch {
		case a.finalScore > b.finalScore:
			return -1
		case a.finalScore < b.finalScore:
			return 1
		default:
			return 0
		}
	})
	return candidates
}

// tokenize lowercases text, splits it on anything but letters and digits and
// folds simple plurals so "kidneys" matches "kidney".
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return fields
}

func singular(word string) string {
	if len(word) <= 4 || !strings.HasSuffix(word, "s") {
		return word
	}
	for _, keep := range []string{"ss", "us", "is"} {
		if strings.HasSuffix(word, keep) {
			return word
		}
	}
	return word[:len(word)-1]
}
