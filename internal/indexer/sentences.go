package indexer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)

// abbreviations end with a period but do not end a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "vs": true, "etc": true, "e.g": true, "i.e": true,
	"fig": true, "figs": true, "eq": true, "ref": true, "refs": true,
	"approx": true, "al": true, "ca": true, "cf": true, "vol": true,
	"no": true, "pp": true, "ch": true, "sec": true, "max": true, "min": true,
}

// paragraphStarts returns the byte offsets at which a new paragraph begins,
// excluding offset 0 and the end of the text.
func paragraphStarts(text string) []int {
	matches := paragraphBreak.FindAllStringIndex(text, -1)
	starts := make([]int, 0, len(matches))
	for _, m := range matches {
		if m[1] > 0 && m[1] < len(text) {
			starts = append(starts, m[1])
		}
	}
	return starts
}

// sentenceStarts returns the byte offsets at which a new sentence begins.
// A sentence ends at '.', '!' or '?' (optionally followed by closing quotes or
// brackets), then whitespace, then an upper-case letter. Periods after common
// abbreviations, single-letter initials and inside decimals are skipped.
func sentenceStarts(text string) []int {
	var starts []int
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if c == '.' && isAbbreviation(text, i) {
			continue
		}

		j := i + 1
		for j < len(text) && strings.IndexByte(`"')]`, text[j]) >= 0 {
			j++
		}
		// Multi-byte closing quotes.
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if r != '”' && r != '’' {
				break
			}
			j += size
		}

		k := j
		for k < len(text) {
			r, size := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsSpace(r) {
				break
			}
			k += size
		}
		if k == j || k >= len(text) {
			continue
		}

		next, _ := utf8.DecodeRuneInString(text[k:])
		if unicode.IsUpper(next) {
			starts = append(starts, k)
		}
		i = j - 1
	}
	return starts
}

func isAbbreviation(text string, dot int) bool {
	start := dot
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(strings.Trim(text[start:dot], "."))
	if word == "" {
		// Decimal point, e.g. "3.14".
		return dot > 0 && dot+1 < len(text) && isDigit(text[dot-1]) && isDigit(text[dot+1])
	}
	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(text[start:])
		return unicode.IsUpper(r)
	}
	return abbreviations[word]
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// splitSentences splits text into sentences, each trimmed of surrounding whitespace.
func splitSentences(text string) []string {
	return splitAt(text, sentenceStarts(text))
}

// splitParagraphs splits text on blank lines, dropping empty blocks.
func splitParagraphs(text string) []string {
	return splitAt(text, paragraphStarts(text))
}

func splitAt(text string, offsets []int) []string {
	var parts []string
	prev := 0
	for _, off := range append(offsets, len(text)) {
		if part := strings.TrimSpace(text[prev:off]); part != "" {
			parts = append(parts, part)
		}
		prev = off
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
