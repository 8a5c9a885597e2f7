package service

import (
	"database/sql"
	"errors"

	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

// repoError converts a repository failure into an API error. Missing rows become NotFound,
// typed errors pass through, anything else is a retryable storage failure.
func repoError(err error, notFound, storage string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Storage(err, storage)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
