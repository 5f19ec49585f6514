// Package images manages the lifecycle of recipe images in object storage:
// upload targets, display URLs, the shared placeholder and blob removal.
package images

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/filex"
	"github.com/dmitrijs2005/recipebox/internal/logging"
	"github.com/dmitrijs2005/recipebox/internal/server/blobstore"
	sc "github.com/dmitrijs2005/recipebox/internal/server/config"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

//go:embed assets/placeholder.png
var defaultPlaceholder []byte

const defaultPlaceholderType = "image/png"

type Manager struct {
	store         blobstore.Store
	logger        logging.Logger
	uploadExpiry  time.Duration
	displayExpiry time.Duration

	placeholder     []byte
	placeholderType string

	mu             sync.Mutex
	placeholderRef string

	now func() time.Time
}

// NewManager wires the manager to store. When cfg.PlaceholderPath is set the
// file replaces the embedded placeholder image.
func NewManager(store blobstore.Store, cfg *sc.Config, logger logging.Logger) (*Manager, error) {
	m := &Manager{
		store:           store,
		logger:          logger.With("module", "images"),
		uploadExpiry:    cfg.UploadURLExpiry,
		displayExpiry:   cfg.DisplayURLExpiry,
		placeholder:     defaultPlaceholder,
		placeholderType: defaultPlaceholderType,
		now:             time.Now,
	}

	if cfg.PlaceholderPath != "" {
		data, ct, err := filex.ReadImage(cfg.PlaceholderPath)
		if err != nil {
			return nil, fmt.Errorf("placeholder: %w", err)
		}
		m.placeholder, m.placeholderType = data, ct
	}

	return m, nil
}

// IssueUploadTarget reserves a fresh storage key and returns a presigned PUT
// URL for it.
func (m *Manager) IssueUploadTarget(ctx context.Context) (*models.WriteHandle, error) {
	now := m.now()
	key := blobstore.NewKey(now)

	url, err := m.store.PresignPut(ctx, key, m.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &models.WriteHandle{
		URL:        url,
		StorageRef: key,
		ExpiresAt:  now.Add(m.uploadExpiry).UTC(),
	}, nil
}

// Upload sends body to the handle's URL and returns the handle's storage ref.
func (m *Manager) Upload(ctx context.Context, h *models.WriteHandle, body []byte, contentType string) (string, error) {
	if h == nil || h.URL == "" {
		return "", fmt.Errorf("upload: missing write handle: %w", common.ErrorValidation)
	}

	if err := m.store.Put(ctx, h.URL, body, contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", h.StorageRef, err)
	}

	m.logger.Debug(ctx, "image uploaded", "ref", h.StorageRef, "size", len(body))
	return h.StorageRef, nil
}

// ResolveDisplayURL returns a short-lived read URL for ref. Empty, "skip" and
// malformed refs resolve to "" without contacting storage.
func (m *Manager) ResolveDisplayURL(ctx context.Context, ref string) (string, error) {
	if ref == "" || ref == common.SkipImageRef || !blobstore.ValidKey(ref) {
		return "", nil
	}

	url, err := m.store.PresignGet(ctx, ref, m.displayExpiry)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return url, nil
}

// Placeholder returns the ref of the shared placeholder image, uploading it on
// first use. A failed upload is not remembered, so the next call retries.
func (m *Manager) Placeholder(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.placeholderRef != "" {
		return m.placeholderRef, nil
	}

	h, err := m.IssueUploadTarget(ctx)
	if err != nil {
		return "", fmt.Errorf("placeholder: %w", err)
	}

	ref, err := m.Upload(ctx, h, m.placeholder, m.placeholderType)
	if err != nil {
		return "", fmt.Errorf("placeholder: %w", err)
	}

	m.placeholderRef = ref
	m.logger.Info(ctx, "placeholder uploaded", "ref", ref)
	return ref, nil
}

// IsPlaceholder reports whether ref is the placeholder uploaded by this process.
func (m *Manager) IsPlaceholder(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ref != "" && ref == m.placeholderRef
}

// DeleteBlob removes the blob behind ref. The shared placeholder is never removed.
func (m *Manager) DeleteBlob(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if m.IsPlaceholder(ref) {
		return fmt.Errorf("delete %s: %w", ref, common.ErrorOwnership)
	}

	if err := m.store.Delete(ctx, ref); err != nil {
		return err
	}
	m.logger.Info(ctx, "image deleted", "ref", ref)
	return nil
}

// Attach stores the image supplied with a form submission. With a file the
// upload is owned by the new recipe; without one the placeholder is shared.
func (m *Manager) Attach(ctx context.Context, file *models.ImageFile) (string, bool, error) {
	if file == nil || len(file.Data) == 0 {
		ref, err := m.Placeholder(ctx)
		if err != nil {
			return "", false, err
		}
		return ref, false, nil
	}

	h, err := m.IssueUploadTarget(ctx)
	if err != nil {
		return "", false, err
	}

	ref, err := m.Upload(ctx, h, file.Data, file.ContentType)
	if err != nil {
		return "", false, err
	}
	return ref, true, nil
}
