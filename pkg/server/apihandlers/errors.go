// Package apihandlers holds the REST handlers for the corpus and projection API.
package apihandlers

import "github.com/lifeembedding/lifeembedding/internal"

var log = internal.GetLogger()

// APIError represents an error response. Used for swagger documentation.
type APIError struct {
	Message string `json:"message"`
}
