// Package importer loads blog posts from markdown files with YAML
// frontmatter. Each file becomes the post whose id is the file's slug, so
// importing the same directory twice overwrites rather than duplicates.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/repository"
)

type meta struct {
	Title  string   `yaml:"title"`
	Date   string   `yaml:"date"`
	Author string   `yaml:"author"`
	Tags   []string `yaml:"tags"`
	Image  string   `yaml:"image"`
}

type Importer struct {
	posts  *repository.Repository[model.BlogPost]
	author string
	logger *log.Logger
}

func New(posts *repository.Repository[model.BlogPost], author string, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(os.Stderr, "[import] ", log.LstdFlags)
	}
	return &Importer{posts: posts, author: author, logger: logger}
}

// ImportDir imports every .md file directly inside dir and returns how
// many were saved. A bad file is logged and skipped.
func (im *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read import dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isMarkdown(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := im.ImportFile(ctx, path); err != nil {
			im.logger.Printf("Skipping %s: %v", path, err)
			continue
		}
		n++
	}
	return n, nil
}

// ImportFile parses one file and upserts it as a post.
func (im *Importer) ImportFile(ctx context.Context, path string) (model.BlogPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.BlogPost{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.BlogPost{}, err
	}

	post, err := parsePost(filepath.Base(path), data, info.ModTime())
	if err != nil {
		return model.BlogPost{}, err
	}
	if post.Author == "" {
		post.Author = im.author
	}

	saved, err := im.posts.Upsert(ctx, post)
	if err != nil {
		return model.BlogPost{}, fmt.Errorf("save %s: %w", post.ID, err)
	}
	im.logger.Printf("Imported %s as post %q", filepath.Base(path), saved.ID)
	return saved, nil
}

// Remove deletes the post imported from path.
func (im *Importer) Remove(ctx context.Context, path string) error {
	id := Slug(filepath.Base(path))
	err := im.posts.Remove(ctx, model.BlogPost{ID: id})
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func parsePost(name string, data []byte, modTime time.Time) (model.BlogPost, error) {
	var m meta
	body, err := frontmatter.Parse(bytes.NewReader(data), &m)
	if err != nil {
		return model.BlogPost{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	id := Slug(name)
	if id == "" {
		return model.BlogPost{}, fmt.Errorf("no usable slug in file name %q", name)
	}

	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(id, "-", " "))
	}

	date, err := normalizeDate(m.Date, modTime)
	if err != nil {
		return model.BlogPost{}, err
	}

	tags := []string{}
	for _, t := range m.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return model.BlogPost{
		ID:       id,
		Title:    title,
		Content:  strings.TrimSpace(string(body)),
		Date:     date,
		Author:   strings.TrimSpace(m.Author),
		Tags:     tags,
		ImageURL: strings.TrimSpace(m.Image),
	}, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"}

func normalizeDate(s string, fallback time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback.UTC().Format(time.RFC3339), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a file name into a post id: "My First Post.md" -> "my-first-post".
func Slug(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(base), "-"), "-")
}

func isMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}
