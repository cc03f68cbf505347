// Package assets stores uploaded images. Two interchangeable providers are
// available: a disk-backed bucket served by the site itself, and the
// Cloudinary upload API.
package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotImage is returned when uploaded bytes are not an image.
	ErrNotImage = errors.New("uploaded file is not an image")

	// ErrEmpty is returned for a zero-length upload.
	ErrEmpty = errors.New("uploaded file is empty")

	// ErrInvalidRef is returned when a reference cannot be mapped back to a
	// stored object.
	ErrInvalidRef = errors.New("invalid asset reference")
)

// Store uploads and removes assets.
type Store interface {
	// Upload stores data and returns a stable URL for it.
	Upload(ctx context.Context, name string, data []byte) (string, error)

	// Remove deletes the asset referenced by a URL returned from Upload.
	Remove(ctx context.Context, ref string) error
}

// CheckImage sniffs data and rejects anything that is not an image.
func CheckImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("image/png") || m.Is("image/jpeg") || m.Is("image/gif") ||
			m.Is("image/webp") || m.Is("image/svg+xml") || m.Is("image/avif") {
			return mt.String(), nil
		}
	}
	return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
}
