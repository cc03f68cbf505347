package admin

import (
	"context"

	"github.com/Zachkp/folio/internal/repository"
)

// Reconciliation decides what list a manager shows after one of its own
// writes succeeds.
type Reconciliation[T any] interface {
	AfterSave(ctx context.Context, saved T) ([]T, error)
	AfterDelete(ctx context.Context, removed T) ([]T, error)
}

// FullRefetchReconciliation re-reads the whole collection after every
// mutation. The list never shows an entity the store has not confirmed.
type FullRefetchReconciliation[T repository.Entity[T]] struct {
	Repo *repository.Repository[T]
}

func (r FullRefetchReconciliation[T]) AfterSave(ctx context.Context, _ T) ([]T, error) {
	return r.Repo.List(ctx)
}

func (r FullRefetchReconciliation[T]) AfterDelete(ctx context.Context, _ T) ([]T, error) {
	return r.Repo.List(ctx)
}
