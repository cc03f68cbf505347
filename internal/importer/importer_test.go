package importer

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
	"github.com/Zachkp/folio/internal/store"
)

func newImporter(t *testing.T) (*Importer, *repository.Repository[model.BlogPost]) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "import.db"), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	posts := repository.NewRepositories(s).Posts
	return New(posts, "Site Author", log.New(io.Discard, "", 0)), posts
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"My First Post.md":   "my-first-post",
		"go_1.24-notes.md":   "go-1-24-notes",
		"--weird--.markdown": "weird",
		"already-a-slug.md":  "already-a-slug",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePost(t *testing.T) {
	mod := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	src := "---\ntitle: Hello\ndate: \"2024-01-02\"\ntags: [go, \" web \", \"\"]\nimage: https://example.com/a.png\n---\n\n# Body\n"

	got, err := parsePost("hello-world.md", []byte(src), mod)
	if err != nil {
		t.Fatalf("parsePost() failed: %v", err)
	}
	want := model.BlogPost{
		ID:       "hello-world",
		Title:    "Hello",
		Content:  "# Body",
		Date:     "2024-01-02T00:00:00Z",
		Tags:     []string{"go", "web"},
		ImageURL: "https://example.com/a.png",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parsePost() = %+v, want %+v", got, want)
	}

	got, err = parsePost("no-front-matter.md", []byte("just text"), mod)
	if err != nil {
		t.Fatalf("parsePost() failed: %v", err)
	}
	if got.Title != "No Front Matter" || got.Date != "2024-05-06T07:08:09Z" {
		t.Errorf("fallbacks = %q %q", got.Title, got.Date)
	}

	if _, err := parsePost("bad.md", []byte("---\ndate: yesterday\n---\nx"), mod); err == nil {
		t.Error("parsePost() accepted an unreadable date")
	}
}

func TestImportDirUpserts(t *testing.T) {
	im, posts := newImporter(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "first.md", "---\ntitle: First\ndate: \"2024-01-01\"\n---\nOne")
	writeFile(t, dir, "second.md", "---\ntitle: Second\ndate: \"2024-02-01\"\nauthor: Guest\n---\nTwo")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "broken.md", "---\ndate: never\n---\nx")

	n, err := im.ImportDir(ctx, dir)
	if err != nil {
		t.Fatalf("ImportDir() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	writeFile(t, dir, "first.md", "---\ntitle: First, edited\ndate: \"2024-01-01\"\n---\nOne")
	if _, err := im.ImportDir(ctx, dir); err != nil {
		t.Fatal(err)
	}

	list, err := posts.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("%d posts after re-import, want 2", len(list))
	}
	if list[0].ID != "second" || list[0].Author != "Guest" {
		t.Errorf("newest post = %+v", list[0])
	}
	if list[1].Title != "First, edited" || list[1].Author != "Site Author" {
		t.Errorf("re-imported post = %+v", list[1])
	}

	if err := im.Remove(ctx, filepath.Join(dir, "first.md")); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := posts.GetOne(ctx, "first"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetOne() after Remove = %v", err)
	}
	if err := im.Remove(ctx, filepath.Join(dir, "never-imported.md")); err != nil {
		t.Errorf("Remove() of unknown file = %v", err)
	}
}

func TestWatchImportsChanges(t *testing.T) {
	im, posts := newImporter(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- im.Watch(ctx, dir) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch() = %v", err)
		}
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "live.md", "---\ntitle: Live\n---\nbody")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p, err := posts.GetOne(context.Background(), "live"); err == nil {
			if p.Title != "Live" {
				t.Errorf("watched post = %+v", p)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("watched file was not imported")
}
