// Package blobstore is the object-storage boundary for recipe images.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/google/uuid"
)

// Store abstracts the S3-compatible bucket holding recipe images.
type Store interface {
	// PresignPut returns a URL accepting a single PUT of the object bytes.
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	// PresignGet returns a time-limited URL for fetching the object.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	// Put pushes body to a URL previously returned by PresignPut.
	Put(ctx context.Context, url string, body []byte, contentType string) error
	// Open streams the object; the caller closes the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh object key of the form recipes/<yyyy>/<m>/<d>/<uuid>.
func NewKey(now time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v", common.StorageKeyPrefix, now.Year(), now.Month(), now.Day(), uuid.New())
}

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool {
	parts := strings.Split(key, "/")
	if len(parts) != 5 || parts[0] != common.StorageKeyPrefix {
		return false
	}
	for _, p := range parts[1:4] {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return false
		}
	}
	_, err := uuid.Parse(parts[4])
	return err == nil
}
