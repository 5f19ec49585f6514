package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/blobstore"
	"github.com/nfnt/resize"
)

// MaxThumbnailHeight caps the requested height.
const MaxThumbnailHeight = 2048

// Source limits, checked before any pixel data is decoded.
var (
	maxSourceBytes  int64 = 32 << 20
	maxSourcePixels       = 40_000_000
)

// Thumbnail fetches ref, scales it to height keeping the aspect ratio and
// re-encodes it in the source format.
func (m *Manager) Thumbnail(ctx context.Context, ref string, height int) ([]byte, string, error) {
	if height <= 0 || height > MaxThumbnailHeight {
		return nil, "", fmt.Errorf("thumbnail height %d: %w", height, common.ErrorValidation)
	}
	if !blobstore.ValidKey(ref) {
		return nil, "", fmt.Errorf("thumbnail %q: %w", ref, common.ErrorNotFound)
	}

	rc, _, err := m.store.Open(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxSourceBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", ref, err)
	}
	if int64(len(data)) > maxSourceBytes {
		return nil, "", fmt.Errorf("source %s exceeds %d bytes: %w", ref, maxSourceBytes, common.ErrorValidation)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %v: %w", ref, err, common.ErrorValidation)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxSourcePixels) {
		return nil, "", fmt.Errorf("source %s is %dx%d: %w", ref, cfg.Width, cfg.Height, common.ErrorValidation)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %v: %w", ref, err, common.ErrorValidation)
	}

	scaled := resize.Resize(0, uint(height), img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, scaled)
		format = "image/png"
	default:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85})
		format = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", ref, err)
	}

	return buf.Bytes(), format, nil
}
