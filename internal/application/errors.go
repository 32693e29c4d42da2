package application

import (
	"errors"

	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

// storeErr translates repository sentinels into typed errors. what names the
// resource for NotFound messages.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, repo.ErrNotFound):
		return apperror.NotFound(what + " not found")
	case errors.Is(err, repo.ErrDuplicateKey):
		return apperror.Conflict(what + " already exists")
	case errors.Is(err, repo.ErrInsufficientStock):
		return apperror.Validation("insufficient stock")
	}
	return apperror.Internal("store operation failed", err)
}

func pageOffset(page, limit int) int { return (page - 1) * limit }

func pageCount(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
