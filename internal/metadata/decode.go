package metadata

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type rawMetadata struct {
	TableOfContents json.RawMessage `json:"table_of_contents"`
	PageStats       json.RawMessage `json:"page_stats"`
}

type rawTOCEntry struct {
	Title        string          `json:"title"`
	PageID       json.RawMessage `json:"page_id"`
	Page         json.RawMessage `json:"page"`
	HeadingLevel json.RawMessage `json:"heading_level"`
}

type rawPageStat struct {
	PageID    json.RawMessage `json:"page_id"`
	NumChars  json.RawMessage `json:"num_chars"`
	CharCount json.RawMessage `json:"char_count"`
	NumWords  json.RawMessage `json:"num_words"`
	WordCount json.RawMessage `json:"word_count"`
}

// Decode parses converter metadata JSON.
//
// Only a document that is not a JSON object is an error. A table of contents or
// page statistics of an unexpected shape decode as empty, and individual entries
// with unreadable pages decode with HasPage false, so Interpret can fall back.
func Decode(data []byte) (Metadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}

	var md Metadata

	var entries []rawTOCEntry
	if len(raw.TableOfContents) > 0 && json.Unmarshal(raw.TableOfContents, &entries) == nil {
		for _, e := range entries {
			entry := TOCEntry{Title: e.Title}
			pageField := e.PageID
			if len(pageField) == 0 {
				pageField = e.Page
			}
			entry.Page, entry.HasPage = lenientInt(pageField)
			entry.Level, _ = lenientInt(e.HeadingLevel)
			md.TOC = append(md.TOC, entry)
		}
	}

	var stats []rawPageStat
	if len(raw.PageStats) > 0 && json.Unmarshal(raw.PageStats, &stats) == nil {
		for _, s := range stats {
			page, ok := lenientInt(s.PageID)
			if !ok {
				continue
			}
			chars, ok := lenientInt(s.NumChars)
			if !ok {
				chars, _ = lenientInt(s.CharCount)
			}
			words, ok := lenientInt(s.NumWords)
			if !ok {
				words, _ = lenientInt(s.WordCount)
			}
			md.PageStats = append(md.PageStats, PageStat{Page: page, Chars: chars, Words: words})
		}
	}

	return md, nil
}

// lenientInt accepts a JSON number or a numeric string.
func lenientInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return numberToInt(string(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return numberToInt(strings.TrimSpace(s))
	}
	return 0, false
}

func numberToInt(s string) (int, bool) {
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
