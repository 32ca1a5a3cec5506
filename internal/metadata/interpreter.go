package metadata

import (
	"slices"
	"strings"
)

// Interpret turns table-of-contents entries and page statistics into a Structure.
//
// Entries without a title or a resolvable page are ignored. When no usable entry
// remains the result is Unavailable. Entries sharing a page keep their original
// order; every one but the last on that page becomes zero-width.
func Interpret(toc []TOCEntry, stats []PageStat) Structure {
	if len(toc) == 0 {
		return Unavailable{Reason: "no table of contents"}
	}

	usable := make([]Boundary, 0, len(toc))
	for _, entry := range toc {
		title := normalizeTitle(entry.Title)
		if title == "" || !entry.HasPage || entry.Page < 0 {
			continue
		}
		usable = append(usable, Boundary{
			Title:     title,
			Level:     entry.Level,
			StartPage: entry.Page,
		})
	}
	if len(usable) == 0 {
		return Unavailable{Reason: "table of contents has no usable entries"}
	}

	slices.SortStableFunc(usable, func(a, b Boundary) int {
		return a.StartPage - b.StartPage
	})

	lastPage := lastKnownPage(usable, stats)
	for i := range usable {
		if i+1 < len(usable) {
			usable[i].EndPage = usable[i+1].StartPage - 1
			continue
		}
		if lastPage > 0 {
			usable[i].EndPage = lastPage
		} else {
			usable[i].EndPage = EndOfDocument
		}
	}

	return Structured{Boundaries: usable, LastPage: lastPage}
}

// lastKnownPage returns the highest page reported by the statistics, or 0 when
// the statistics say nothing beyond the last boundary.
func lastKnownPage(boundaries []Boundary, stats []PageStat) int {
	if len(stats) == 0 {
		return 0
	}
	last := 0
	for _, s := range stats {
		if s.Page > last {
			last = s.Page
		}
	}
	if last < boundaries[len(boundaries)-1].StartPage {
		return 0
	}
	return last
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
