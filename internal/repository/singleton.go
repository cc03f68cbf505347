package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Zachkp/folio/internal/model"
	"github.com/Zachkp/folio/internal/store"
)

// Singleton reads and upserts the one document of a collection keyed by
// model.SingletonID. It is created on first save and never deleted.
type Singleton[T any] struct {
	store      store.Store
	collection string
}

func NewSingleton[T any](s store.Store, collection string) *Singleton[T] {
	return &Singleton[T]{store: s, collection: collection}
}

func (r *Singleton[T]) Collection() string { return r.collection }

// Get returns the stored value. found is false when nothing has been saved
// yet; that is not an error.
func (r *Singleton[T]) Get(ctx context.Context) (v T, found bool, err error) {
	doc, err := r.store.Get(ctx, r.collection, model.SingletonID)
	if errors.Is(err, store.ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, &FetchError{Collection: r.collection, Err: err}
	}
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, false, &FetchError{Collection: r.collection, Err: err}
	}
	return v, true, nil
}

// Save upserts the full document.
func (r *Singleton[T]) Save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.collection, err)
	}
	return r.store.Put(ctx, r.collection, model.SingletonID, data)
}
