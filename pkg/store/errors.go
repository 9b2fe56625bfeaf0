package store

import (
	"errors"
	"fmt"
)

type StorageError struct {
	Message       string
	OriginalError error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s (original error: %v)", e.Message, e.OriginalError)
}

func (e *StorageError) Unwrap() error {
	return e.OriginalError
}

func NewStorageError(message string, originalError error) *StorageError {
	return &StorageError{Message: message, OriginalError: originalError}
}

var ErrEmbeddingMismatch = errors.New("embedding width mismatch")

type EmbeddingMismatchError struct {
	PersonID string
	Expected int
	Got      int
}

func (e *EmbeddingMismatchError) Error() string {
	return fmt.Sprintf(
		"embedding width mismatch for person %s: expected %d, got %d. please ensure that "+
			"embeddings.dimensions matches the configured embedding model",
		e.PersonID,
		e.Expected,
		e.Got,
	)
}

func (e *EmbeddingMismatchError) Unwrap() error {
	return ErrEmbeddingMismatch
}

func NewEmbeddingMismatchError(personID string, expected, got int) *EmbeddingMismatchError {
	return &EmbeddingMismatchError{PersonID: personID, Expected: expected, Got: got}
}
