package domain

import "errors"

var (
	// ErrInvalidMovie signals a catalog record that cannot be indexed.
	ErrInvalidMovie = errors.New("invalid movie record")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
