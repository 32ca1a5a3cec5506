package document

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	pagePattern   = regexp.MustCompile(`_page_(\d+)_`)
	figurePattern = regexp.MustCompile(`(Figure|Picture)_(\d+)`)
)

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// ParseImageRef extracts page and figure information from a converter image
// filename such as "_page_3_Figure_1.jpeg".
func ParseImageRef(filename string) ImageRef {
	ref := ImageRef{Filename: filename, Kind: "unknown", Page: -1, FigureIndex: -1}
	if m := pagePattern.FindStringSubmatch(filename); m != nil {
		if page, err := strconv.Atoi(m[1]); err == nil {
			ref.Page = page
		}
	}
	if m := figurePattern.FindStringSubmatch(filename); m != nil {
		ref.Kind = m[1]
		if n, err := strconv.Atoi(m[2]); err == nil {
			ref.FigureIndex = n
		}
	}
	return ref
}

// listImages returns the image references found directly inside dir.
func listImages(dir string) ([]ImageRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var refs []ImageRef
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		refs = append(refs, ParseImageRef(e.Name()))
	}
	SortImages(refs)
	return refs, nil
}

// SortImages orders images by page then figure index. Images without a page sort first.
func SortImages(refs []ImageRef) {
	slices.SortStableFunc(refs, func(a, b ImageRef) int {
		if a.Page != b.Page {
			return a.Page - b.Page
		}
		if a.FigureIndex != b.FigureIndex {
			return a.FigureIndex - b.FigureIndex
		}
		return strings.Compare(a.Filename, b.Filename)
	})
}
