// Package metadata interprets the converter's table-of-contents and page
// statistics into ordered section boundaries.
package metadata

import "fmt"

// EndOfDocument marks a boundary whose section runs to the last page of the document.
const EndOfDocument = -1

// TOCEntry is one table-of-contents item as produced by the PDF converter.
type TOCEntry struct {
	Title string
	// Page is the start page. Only meaningful when HasPage is true.
	Page    int
	HasPage bool
	Level   int
}

// PageStat holds per-page counts. Zero counts mean the converter did not report them.
type PageStat struct {
	Page  int
	Chars int
	Words int
}

// Metadata is the decoded metadata document for one source file.
type Metadata struct {
	TOC       []TOCEntry
	PageStats []PageStat
}

// Boundary is the start of one logical section and the inclusive page range it owns.
type Boundary struct {
	Title     string
	Level     int
	StartPage int
	// EndPage is inclusive, or EndOfDocument. A boundary superseded by a later
	// entry on the same page has EndPage < StartPage.
	EndPage int
}

// ZeroWidth reports whether the boundary owns no pages.
func (b Boundary) ZeroWidth() bool {
	return b.EndPage != EndOfDocument && b.EndPage < b.StartPage
}

// Contains reports whether page falls within the boundary's range.
func (b Boundary) Contains(page int) bool {
	if page < b.StartPage {
		return false
	}
	return b.EndPage == EndOfDocument || page <= b.EndPage
}

func (b Boundary) String() string {
	switch {
	case b.ZeroWidth():
		return fmt.Sprintf("%q@%d(empty)", b.Title, b.StartPage)
	case b.EndPage == EndOfDocument:
		return fmt.Sprintf("%q@%d-end", b.Title, b.StartPage)
	default:
		return fmt.Sprintf("%q@%d-%d", b.Title, b.StartPage, b.EndPage)
	}
}

// Structure is the result of interpreting metadata. It is either Structured
// or Unavailable; callers switch on the concrete type.
type Structure interface {
	isStructure()
}

// Structured carries boundaries sorted by start page.
type Structured struct {
	Boundaries []Boundary
	// LastPage is the highest page known from the metadata, or 0 when unknown.
	LastPage int
}

// Unavailable signals that no usable structure exists and fallback segmentation applies.
type Unavailable struct {
	Reason string
}

func (Structured) isStructure()  {}
func (Unavailable) isStructure() {}
