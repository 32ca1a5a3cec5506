package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned when searching a collection with no points.
	ErrEmptyIndex = errors.New("vector index is empty or uninitialized")
	// ErrVectorSize is returned when a collection's vector size does not match.
	ErrVectorSize = errors.New("vector size mismatch")
)

// IndexError is returned by VectorStore implementations.
type IndexError struct {
	Op         string
	Collection string
	Transient  bool
	Err        error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s %q: %v", e.Op, e.Collection, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

func (e *IndexError) IsTransient() bool {
	return e.Transient
}

func indexErr(op, collection string, err error) error {
	return &IndexError{
		Op:         op,
		Collection: collection,
		Transient:  errors.Is(err, context.DeadlineExceeded),
		Err:        err,
	}
}
