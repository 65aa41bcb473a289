package internal

import (
	"context"
	"fmt"
	"io"
)

// Repository is the object storage harvested records are written to.
type Repository interface {
	// EnsureBucket makes sure the destination bucket exists, creating it
	// when absent. An error means the bucket cannot be used.
	EnsureBucket(ctx context.Context) error
	Write(ctx context.Context, key string, reader io.Reader) error
}

// StorageError is returned when a bucket cannot be provisioned or an object
// cannot be written.
type StorageError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
