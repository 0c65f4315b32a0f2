package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrDuplicateVideo is returned when attempting to create a video that already exists.
	ErrDuplicateVideo = errors.New("video already exists")

	// ErrCategoryNotFound is returned when a category cannot be found.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrDuplicateCategory is returned when a category name or slug is already taken.
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when a stored object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnrecognizedObjectURL is returned when no storage key can be derived from a URL.
	ErrUnrecognizedObjectURL = errors.New("cannot derive storage key from URL")
)
