package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsStoreMessage(t *testing.T) {
	cause := fmt.Errorf("pq: duplicate key value violates unique constraint")
	err := Wrap(cause, ErrRepository.Code, ErrRepository.Status, "failed to save results")

	assert.Equal(t, "failed to save results: pq: duplicate key value violates unique constraint", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrRepository)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "result not found"))
	appErr = FromError(wrapped)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, "result not found", appErr.Message)
	assert.Nil(t, FromError(nil))
}

func TestWithDetailsDoesNotMutateSentinel(t *testing.T) {
	detailed := WithDetails(ErrValidation, []string{"row 1"})
	assert.Equal(t, []string{"row 1"}, detailed.Details)
	assert.Nil(t, ErrValidation.Details)
}
