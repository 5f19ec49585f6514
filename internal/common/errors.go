// Package common defines shared constants and sentinel errors used across
// the recipebox layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors (blank title, rating out of range, malformed form input).
	ErrorValidation = errors.New("validation error")

	// Image ownership errors.
	ErrorImageInUse = errors.New("image already referenced by another recipe")
	ErrorOwnership  = errors.New("image is shared and cannot be owned or deleted")
)
