package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"vantera/models"
)

var ErrUnsupportedMedia = errors.New("unsupported media type")

// ObjectStore is where uploaded bytes end up.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Inserted int    `json:"inserted"`
	Width    *int   `json:"width,omitempty"`
	Height   *int   `json:"height,omitempty"`
}

// UploadService stores operator photos in object storage and attaches them to
// a listing through media ingestion.
type UploadService struct {
	objects ObjectStore
	media   *MediaService
	store   Store
}

func NewUploadService(objects ObjectStore, media *MediaService, store Store) *UploadService {
	return &UploadService{objects: objects, media: media, store: store}
}

// Upload keys objects by content hash, so the same bytes map to the same URL
// and a repeated upload inserts nothing.
func (s *UploadService) Upload(ctx context.Context, listingID uuid.UUID, filename, alt string, data []byte) (*UploadResult, error) {
	listing, err := s.store.GetListingByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])
	key := fmt.Sprintf("media/%s/%s%s", contentHash[:2], contentHash, guessExtension(filename, contentType))

	if err := s.objects.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	result := &UploadResult{URL: s.objects.PublicURL(key), Key: key}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		result.Width, result.Height = &cfg.Width, &cfg.Height
	}

	n, err := s.media.Ingest(ctx, listingID, models.SourceUpload, []models.Photo{{
		URL:    result.URL,
		Alt:    alt,
		Width:  result.Width,
		Height: result.Height,
	}})
	if err != nil {
		return nil, err
	}
	result.Inserted = n

	log.Printf("Upload: %s -> %s (inserted=%d)", filename, key, n)
	return result, nil
}

func guessExtension(filename, contentType string) string {
	// Try filename first
	ext := strings.ToLower(path.Ext(filename))
	if ext != "" && isImageExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tiff":
		return true
	}
	return false
}
