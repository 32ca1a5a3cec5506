package document

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseImageRef(t *testing.T) {
	tests := []struct {
		filename string
		want     ImageRef
	}{
		{"_page_3_Figure_1.jpeg", ImageRef{Filename: "_page_3_Figure_1.jpeg", Kind: "Figure", Page: 3, FigureIndex: 1}},
		{"_page_12_Picture_4.jpeg", ImageRef{Filename: "_page_12_Picture_4.jpeg", Kind: "Picture", Page: 12, FigureIndex: 4}},
		{"cover.jpeg", ImageRef{Filename: "cover.jpeg", Kind: "unknown", Page: -1, FigureIndex: -1}},
		{"_page_0_x.png", ImageRef{Filename: "_page_0_x.png", Kind: "unknown", Page: 0, FigureIndex: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := ParseImageRef(tt.filename); got != tt.want {
				t.Errorf("ParseImageRef(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestSortImages(t *testing.T) {
	refs := []ImageRef{
		ParseImageRef("_page_2_Figure_2.jpeg"),
		ParseImageRef("_page_1_Figure_1.jpeg"),
		ParseImageRef("_page_2_Figure_1.jpeg"),
	}
	SortImages(refs)

	want := []string{"_page_1_Figure_1.jpeg", "_page_2_Figure_1.jpeg", "_page_2_Figure_2.jpeg"}
	for i, r := range refs {
		if r.Filename != want[i] {
			t.Errorf("refs[%d] = %s, want %s", i, r.Filename, want[i])
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b_doc", "b_doc.md"), "# B")
	writeFile(t, filepath.Join(root, "a_doc", "a_doc.md"), "# A")
	writeFile(t, filepath.Join(root, "a_doc", "metadata.txt"), "{}")
	writeFile(t, filepath.Join(root, "no_markdown", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, ".hidden", ".hidden.md"), "x")
	writeFile(t, filepath.Join(root, "stray.md"), "x")

	sources, err := Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Scan() returned %d sources, want 2: %+v", len(sources), sources)
	}
	if sources[0].Name != "a_doc" || sources[1].Name != "b_doc" {
		t.Errorf("Scan() order = %s, %s", sources[0].Name, sources[1].Name)
	}
	if filepath.Base(sources[0].MetadataPath) != "metadata.txt" {
		t.Errorf("a_doc metadata path = %q", sources[0].MetadataPath)
	}
	if sources[1].MetadataPath != "" {
		t.Errorf("b_doc should have no metadata, got %q", sources[1].MetadataPath)
	}
}

func TestScan_MissingRoot(t *testing.T) {
	if _, err := Scan(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Scan() expected error for missing root")
	}
}

func TestLoader_Load(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cardio")
	// "e" followed by a combining acute accent normalizes to a single rune.
	writeFile(t, filepath.Join(dir, "cardio.md"), "# Cafe\u0301\n\nHeart text.")
	writeFile(t, filepath.Join(dir, "metadata.txt"), `{"table_of_contents":[{"title":"Heart","page_id":0}]}`)
	writeFile(t, filepath.Join(dir, "_page_0_Figure_1.jpeg"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	sources, err := Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	doc, err := NewLoader(slog.Default()).Load(context.Background(), sources[0])
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Name != "cardio" {
		t.Errorf("Name = %q", doc.Name)
	}
	if doc.Text != "# Caf\u00e9\n\nHeart text." {
		t.Errorf("Text not NFC normalized: %q", doc.Text)
	}
	if len(doc.Metadata.TOC) != 1 || doc.Metadata.TOC[0].Title != "Heart" {
		t.Errorf("Metadata.TOC = %+v", doc.Metadata.TOC)
	}
	if len(doc.Images) != 1 || doc.Images[0].Page != 0 {
		t.Errorf("Images = %+v", doc.Images)
	}
	if len(doc.Hash) != 64 {
		t.Errorf("Hash = %q", doc.Hash)
	}
}

func TestLoader_MalformedMetadataFallsBack(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc", "doc.md"), "text")
	writeFile(t, filepath.Join(root, "doc", "metadata.txt"), "{broken")

	docs, failures, err := NewLoader(slog.Default()).LoadAll(context.Background(), root)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v", failures)
	}
	if len(docs) != 1 || len(docs[0].Metadata.TOC) != 0 {
		t.Errorf("docs = %+v", docs)
	}
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc", "doc.md"), "v1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 10)
	w := NewWatcher(root, 100*time.Millisecond, slog.Default())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { calls <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(root, "doc", "doc.md"), "v2")
	}

	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("onChange was not called")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
