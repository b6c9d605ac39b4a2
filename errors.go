package vectra

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vectra/blobstore"
	"github.com/hupe1980/vectra/collection"
	"github.com/hupe1980/vectra/distance"
	"github.com/hupe1980/vectra/persistence"
)

// ErrNotFound is returned when a collection has neither a cached nor a
// durable representation.
var ErrNotFound = errors.New("collection not found")

// ErrEmptyMetadataKey is returned by Insert when a metadata entry
// carries an empty key. Keys identify schema fields and must be
// non-empty.
var ErrEmptyMetadataKey = errors.New("metadata key must not be empty")

// ErrAlreadyExists indicates a create for a collection name that is
// already resident or durably present.
type ErrAlreadyExists struct {
	Name string
}

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("collection %q already exists", e.Name)
}

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrUnknownMetric indicates an unrecognized distance metric code.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnknownMetric struct {
	Code  string
	cause error
}

func (e *ErrUnknownMetric) Error() string {
	return fmt.Sprintf("unknown metric code: %q", e.Code)
}

func (e *ErrUnknownMetric) Unwrap() error { return e.cause }

// ErrCorruptData indicates that a collection's durable bytes failed to
// decode.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrCorruptData struct {
	Name  string
	cause error
}

func (e *ErrCorruptData) Error() string {
	return fmt.Sprintf("corrupt data for collection %q: %v", e.Name, e.cause)
}

func (e *ErrCorruptData) Unwrap() error { return e.cause }

// translateError maps errors from the collection, distance, persistence
// and blobstore layers into the engine's taxonomy. Errors already in the
// taxonomy pass through unchanged.
func translateError(name string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if errors.Is(err, persistence.ErrCorrupt) {
		return &ErrCorruptData{Name: name, cause: err}
	}

	var dm *collection.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var um *distance.ErrUnknownMetric
	if errors.As(err, &um) {
		return &ErrUnknownMetric{Code: um.Code, cause: err}
	}

	return err
}
