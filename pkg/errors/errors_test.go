package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrInsufficientCrystals, "team has 3 crystals")
	assert.True(t, stdErrors.Is(err, ErrInsufficientCrystals))
	assert.False(t, stdErrors.Is(err, ErrItemUnavailable))
	assert.Equal(t, "team has 3 crystals", err.Message)
	assert.Equal(t, "insufficient crystals", ErrInsufficientCrystals.Message)
}

func TestWrappedErrorsMatchThroughFmt(t *testing.T) {
	err := fmt.Errorf("grant: %w", Clone(ErrValidation, "empty targets"))
	assert.True(t, stdErrors.Is(err, ErrValidation))
	assert.Equal(t, http.StatusBadRequest, FromError(err).Status)
}

func TestStorageIsRetryable(t *testing.T) {
	err := Storage(sql.ErrConnDone, "")
	assert.True(t, err.Retryable())
	assert.True(t, stdErrors.Is(err, sql.ErrConnDone))
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.False(t, ErrValidation.Retryable())
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	assert.Nil(t, FromError(nil))
	err := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
}

func TestWithDetailsCopies(t *testing.T) {
	err := WithDetails(ErrPartialGrant, []string{"t1"})
	assert.Equal(t, []string{"t1"}, err.Details)
	assert.Nil(t, ErrPartialGrant.Details)
}
