package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/icu-api/internal/repository"
	apperrors "github.com/jwalitptl/icu-api/pkg/errors"
)

// StoreError translates repository sentinels into application errors.
// AppErrors pass through unchanged.
func StoreError(resource string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, err)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(fmt.Sprintf("%s already exists", resource), err)
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewUnavailable(err)
	default:
		return apperrors.NewInternal(err)
	}
}

// IsNotFound reports whether err is a repository miss.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
