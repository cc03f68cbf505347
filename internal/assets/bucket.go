package assets

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Bucket keeps uploads in a local directory that the web server exposes
// under a public URL prefix.
type Bucket struct {
	dir     string
	baseURL string
	folder  string
}

// NewBucket stores objects under dir/folder and builds URLs from baseURL
// (for example "/uploads").
func NewBucket(dir, baseURL, folder string) *Bucket {
	return &Bucket{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		folder:  strings.Trim(folder, "/"),
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(unsafeChars.ReplaceAllString(filepath.Ext(name), ""))
	base := unsafeChars.ReplaceAllString(strings.TrimSuffix(name, filepath.Ext(name)), "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = "upload"
	}
	return base + ext
}

func (b *Bucket) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if _, err := CheckImage(data); err != nil {
		return "", err
	}

	key := path.Join(b.folder, uuid.NewString()+"-"+safeName(name))
	full := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("create bucket folder: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	return b.baseURL + "/" + key, nil
}

func (b *Bucket) Remove(ctx context.Context, ref string) error {
	key, err := b.keyFor(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(b.dir, filepath.FromSlash(key))); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// keyFor maps a URL produced by Upload, or a bare key, to an object key
// inside the bucket.
func (b *Bucket) keyFor(ref string) (string, error) {
	key := ref
	if i := strings.Index(key, b.baseURL+"/"); b.baseURL != "" && i >= 0 {
		key = key[i+len(b.baseURL)+1:]
	}
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if strings.Contains(key, "://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	key = path.Clean(strings.TrimPrefix(key, "/"))
	if key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return key, nil
}
