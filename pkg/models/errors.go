package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	// ErrModelNotReady is returned when a projection is requested before the
	// reduction models are loaded.
	ErrModelNotReady = errors.New("reduction models not loaded")

	// ErrPreconditionViolation marks caller programming errors such as an empty
	// cluster set or a malformed corpus index.
	ErrPreconditionViolation = errors.New("precondition violation")
)

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func (e *BadRequestError) Unwrap() error {
	return ErrBadRequest
}

func NewBadRequestError(message string) error {
	return &BadRequestError{Message: message}
}

// EmbeddingProviderError wraps a failure from the external embedding provider.
// The cause is kept intact and reachable through errors.Unwrap.
type EmbeddingProviderError struct {
	Provider string
	Err      error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingProviderError) Unwrap() error {
	return e.Err
}

func NewEmbeddingProviderError(provider string, err error) error {
	return &EmbeddingProviderError{Provider: provider, Err: err}
}

func NewPreconditionViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionViolation, fmt.Sprintf(format, args...))
}
