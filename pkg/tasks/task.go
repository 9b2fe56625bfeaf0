// Package tasks holds the offline jobs run from the command line.
package tasks

import (
	"github.com/lifeembedding/lifeembedding/internal"
)

var log = internal.GetLogger()

// EmbeddingTextMaxChars bounds the narrative stored alongside an embedding.
const EmbeddingTextMaxChars = 1000
