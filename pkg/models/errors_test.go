package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingProviderError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("generate embedding: %w", NewEmbeddingProviderError("vertexai", cause))

	var providerErr *EmbeddingProviderError
	assert.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "vertexai", providerErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestTaxonomySentinels(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "not found", err: NewNotFoundError("person p1"), sentinel: ErrNotFound},
		{name: "bad request", err: NewBadRequestError("limit must be positive"), sentinel: ErrBadRequest},
		{name: "precondition", err: NewPreconditionViolation("empty cluster set"), sentinel: ErrPreconditionViolation},
		{name: "wrapped model not ready", err: fmt.Errorf("project: %w", ErrModelNotReady), sentinel: ErrModelNotReady},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.err, tc.sentinel)
		})
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	assert.Equal(t, "person p1 not found", NewNotFoundError("person p1").Error())
}
