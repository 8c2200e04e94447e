package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCollection rejects a query that names no collection at all.
var ErrNoCollection = errors.New("no collection identifier supplied")

// UnknownCollectionError rejects a query against a collection with zero
// stored entries. It enumerates the collections that do exist.
type UnknownCollectionError struct {
	Product string
	Known   []string
}

func (e *UnknownCollectionError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no documents for collection %q (no collections exist yet)", e.Product)
	}
	return fmt.Sprintf("no documents for collection %q (known collections: %s)",
		e.Product, strings.Join(e.Known, ", "))
}

// RetrievalError wraps a store failure at query time.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval failed: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps a generation-service failure at query time.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// IndexWriteError wraps an embedding or store failure during ingestion. The
// document stays persisted as uploaded-but-not-indexed; no automatic retry.
type IndexWriteError struct {
	Err error
}

func (e *IndexWriteError) Error() string { return fmt.Sprintf("index write failed: %v", e.Err) }
func (e *IndexWriteError) Unwrap() error { return e.Err }
