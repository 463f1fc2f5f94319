package service

import (
	"context"

	"github.com/jwalitptl/icu-api/internal/repository"
)

// WithTx runs fn in a store transaction. Failures to begin or commit are
// translated like any other store error on resource.
func WithTx(ctx context.Context, store repository.Store, resource string, fn func(tx repository.Repositories) error) error {
	return StoreError(resource, store.WithTx(ctx, fn))
}
