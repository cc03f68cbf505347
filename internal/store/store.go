// Package store is the document store behind every collection of site
// content. Documents are JSON objects addressed by (collection, id); the
// store is the sole source of truth for the public pages and the admin panel.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidDocument is returned when data is not a JSON object.
	ErrInvalidDocument = errors.New("document data must be a JSON object")

	// ErrInvalidField is returned for an order-by field that is not a plain
	// identifier.
	ErrInvalidField = errors.New("invalid order field")
)

// Document is one stored record.
type Document struct {
	ID        string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// OrderBy sorts a listing by a top-level field of the document data.
type OrderBy struct {
	Field string
	Desc  bool
}

// Asc and Desc build OrderBy values.
func Asc(field string) OrderBy  { return OrderBy{Field: field} }
func Desc(field string) OrderBy { return OrderBy{Field: field, Desc: true} }

// Store is the contract every repository depends on.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, order ...OrderBy) ([]Document, error)

	// Add creates a document and returns the id assigned by the store.
	Add(ctx context.Context, collection string, data json.RawMessage) (string, error)

	// Put overwrites the full document at id, creating it if absent.
	Put(ctx context.Context, collection, id string, data json.RawMessage) error

	// Update overwrites an existing document. It returns an error wrapping
	// ErrNotFound when id is absent.
	Update(ctx context.Context, collection, id string, data json.RawMessage) error

	Delete(ctx context.Context, collection, id string) error

	// Subscribe calls fn with the full ordered snapshot of collection after
	// every successful write to it. The returned func cancels the
	// subscription.
	Subscribe(collection string, order []OrderBy, fn func([]Document)) (unsubscribe func())

	Close() error
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateOrder(order []OrderBy) error {
	for _, o := range order {
		if !fieldPattern.MatchString(o.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, o.Field)
		}
	}
	return nil
}

func validateData(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return ErrInvalidDocument
	}
	return nil
}
