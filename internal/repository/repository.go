// Package repository provides typed access to one collection of the
// document store per content kind.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zachkp/folio/internal/store"
)

// ErrNotFound is returned by GetOne when no document has the id.
var ErrNotFound = store.ErrNotFound

// FetchError reports a failed read. Callers show a retry affordance rather
// than an empty list.
type FetchError struct {
	Collection string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Collection, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is (or wraps) a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Entity is implemented by every listable content record. The methods
// return modified copies so records can stay plain values.
type Entity[T any] interface {
	EntityID() string
	WithID(id string) T
	AssetURL() string
	WithAssetURL(url string) T
}

// Repository is a typed accessor over one collection.
type Repository[T Entity[T]] struct {
	store      store.Store
	collection string
	order      []store.OrderBy
}

// New returns a repository over collection. order is the default listing
// order.
func New[T Entity[T]](s store.Store, collection string, order ...store.OrderBy) *Repository[T] {
	return &Repository[T]{store: s, collection: collection, order: order}
}

func (r *Repository[T]) Collection() string { return r.collection }

// Order returns the default listing order.
func (r *Repository[T]) Order() []store.OrderBy { return r.order }

// List returns every entity, in the given order or the default one.
func (r *Repository[T]) List(ctx context.Context, order ...store.OrderBy) ([]T, error) {
	if len(order) == 0 {
		order = r.order
	}
	docs, err := r.store.List(ctx, r.collection, order...)
	if err != nil {
		return nil, &FetchError{Collection: r.collection, Err: err}
	}
	items, err := decodeAll[T](docs)
	if err != nil {
		return nil, &FetchError{Collection: r.collection, Err: err}
	}
	return items, nil
}

// GetOne returns the entity with id, or an error wrapping ErrNotFound.
func (r *Repository[T]) GetOne(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := r.store.Get(ctx, r.collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return zero, err
	}
	if err != nil {
		return zero, &FetchError{Collection: r.collection, Err: err}
	}
	return decode[T](doc)
}

// Save overwrites the full document when isUpdate is set, otherwise it
// creates a new one. An update of a document that no longer exists fails
// with an error wrapping ErrNotFound. The returned entity carries the
// stored id. No cached list is touched.
func (r *Repository[T]) Save(ctx context.Context, e T, isUpdate bool) (T, error) {
	var zero T
	if isUpdate {
		if e.EntityID() == "" {
			return zero, fmt.Errorf("update %s: entity has no id", r.collection)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return zero, fmt.Errorf("encode %s: %w", r.collection, err)
		}
		if err := r.store.Update(ctx, r.collection, e.EntityID(), data); err != nil {
			return zero, err
		}
		return e, nil
	}

	data, err := json.Marshal(e.WithID(""))
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", r.collection, err)
	}
	id, err := r.store.Add(ctx, r.collection, data)
	if err != nil {
		return zero, err
	}
	return e.WithID(id), nil
}

// Upsert writes e at its own id, creating the document if absent.
func (r *Repository[T]) Upsert(ctx context.Context, e T) (T, error) {
	var zero T
	if e.EntityID() == "" {
		return zero, fmt.Errorf("upsert %s: entity has no id", r.collection)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", r.collection, err)
	}
	if err := r.store.Put(ctx, r.collection, e.EntityID(), data); err != nil {
		return zero, err
	}
	return e, nil
}

// Remove deletes the document only. Removing an associated asset is the
// caller's job.
func (r *Repository[T]) Remove(ctx context.Context, e T) error {
	return r.store.Delete(ctx, r.collection, e.EntityID())
}

// Subscribe delivers the ordered collection after every write. A snapshot
// that cannot be decoded is delivered as an error instead.
func (r *Repository[T]) Subscribe(fn func([]T, error)) func() {
	return r.store.Subscribe(r.collection, r.order, func(docs []store.Document) {
		items, err := decodeAll[T](docs)
		if err != nil {
			fn(nil, &FetchError{Collection: r.collection, Err: err})
			return
		}
		fn(items, nil)
	})
}

func decode[T Entity[T]](doc store.Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return v.WithID(doc.ID), nil
}

func decodeAll[T Entity[T]](docs []store.Document) ([]T, error) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
